package domain

import "time"

// Identity is a resolved, authenticated player identity. It is attached to a
// connection at handshake time and never changes afterwards.
type Identity struct {
	UserID      string
	DisplayName string
	GradeLevel  int
	Affiliation string
}

// Question is one multiple-choice question. Immutable once drawn into a duel.
type Question struct {
	Prompt       string
	Options      []string
	CorrectIndex int
}

// Participant is the live per-player state inside a duel. It is owned
// exclusively by its session and discarded when the session ends.
type Participant struct {
	UserID      string
	DisplayName string
	Affiliation string
	Score       int
	Streak      int
	Synthetic   bool
}

// WaitingEntry is a player waiting in a matchmaking queue.
type WaitingEntry struct {
	Identity   Identity
	GradeLevel int
	EnqueuedAt time.Time
}

// Pairing is the synchronous result of matchmaking: two identities bound for
// a new duel. When Synthetic is set, B is a manufactured opponent and only A
// corresponds to a real connection.
type Pairing struct {
	A          Identity
	B          Identity
	GradeLevel int
	Synthetic  bool
}

type DuelState int

const (
	DuelWaitingStart DuelState = iota
	DuelInProgress
	DuelFinished
)

func (s DuelState) String() string {
	switch s {
	case DuelWaitingStart:
		return "WAITING_START"
	case DuelInProgress:
		return "IN_PROGRESS"
	case DuelFinished:
		return "FINISHED"
	}
	return "UNKNOWN"
}

// DuelResult describes how a finished duel resolved.
type DuelResult string

const (
	ResultWin        DuelResult = "win"
	ResultDraw       DuelResult = "draw"
	ResultDisconnect DuelResult = "disconnect"
)
