package duel

// Outbound is one server→client message. The transport layer marshals it as
// {"type": ..., "data": ...} without caring which game produced it.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Messenger delivers outbound messages to a connected player. Sends must not
// block game handlers; the websocket layer satisfies this with buffered
// per-connection channels. Sends to unknown or synthetic players are dropped.
type Messenger interface {
	Send(userID string, out Outbound)
}

const (
	TypeMatchFound           = "match_found"
	TypeMatchError           = "match_error"
	TypeGameStart            = "game_start"
	TypeNewQuestion          = "new_question"
	TypeOpponentAnswered     = "opponent_answered"
	TypeRoundResult          = "round_result"
	TypeRoundTimeout         = "round_timeout"
	TypeGameOver             = "game_over"
	TypeOpponentDisconnected = "opponent_disconnected"
)

type OpponentInfo struct {
	DisplayName string `json:"display_name"`
	Affiliation string `json:"affiliation"`
}

type MatchFoundPayload struct {
	DuelID   string       `json:"duel_id"`
	Opponent OpponentInfo `json:"opponent"`
}

type MatchErrorPayload struct {
	Reason    string `json:"reason"`
	Retryable bool   `json:"retryable"`
}

type GameStartPayload struct {
	DuelID         string `json:"duel_id"`
	TotalQuestions int    `json:"total_questions"`
}

// NewQuestionPayload deliberately omits the correct index; the server stays
// authoritative over correctness.
type NewQuestionPayload struct {
	DuelID        string   `json:"duel_id"`
	RoundIndex    int      `json:"round_index"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	SecondsBudget int      `json:"seconds_budget"`
}

// OpponentAnsweredPayload tells a player their opponent has locked in,
// withholding whether the answer was correct.
type OpponentAnsweredPayload struct {
	RoundIndex int `json:"round_index"`
}

// RoundResultPayload reveals the correct option and the recipient's own
// delta, score and streak. The opponent's running score is withheld until
// game over.
type RoundResultPayload struct {
	RoundIndex   int `json:"round_index"`
	CorrectIndex int `json:"correct_index"`
	Delta        int `json:"delta"`
	Score        int `json:"score"`
	Streak       int `json:"streak"`
}

type RoundTimeoutPayload struct {
	RoundIndex int `json:"round_index"`
}

type FinalScore struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
}

type GameOverPayload struct {
	DuelID       string       `json:"duel_id"`
	Result       string       `json:"result"`
	WinnerUserID string       `json:"winner_user_id,omitempty"`
	FinalScores  []FinalScore `json:"final_scores"`
}
