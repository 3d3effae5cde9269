package api

import "encoding/json"

// Client→server message types. Server→client types live in the duel package,
// next to the code that produces them.
const (
	TypeFindMatch    = "find_match"
	TypeLeaveQueue   = "leave_queue"
	TypeSubmitAnswer = "submit_answer"
)

// Envelope is the wire framing for client messages: {"type": ..., "data": ...}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type SubmitAnswerRequest struct {
	DuelID           string `json:"duel_id"`
	OptionIndex      int    `json:"option_index"`
	SecondsRemaining int    `json:"seconds_remaining"`
}
