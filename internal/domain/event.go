package domain

const (
	EventNameDuelStarted  = "duel.started"
	EventNameDuelFinished = "duel.finished"
	EventNameBotPaired    = "match.bot_paired"
)

type EventDuelStarted struct {
	DuelID     string
	GradeLevel int
	Synthetic  bool
}

func (EventDuelStarted) Name() string { return EventNameDuelStarted }

type EventDuelFinished struct {
	DuelID       string
	GradeLevel   int
	Result       DuelResult
	WinnerUserID string
	Rounds       int
}

func (EventDuelFinished) Name() string { return EventNameDuelFinished }

type EventBotPaired struct {
	GradeLevel int
}

func (EventBotPaired) Name() string { return EventNameBotPaired }
