package duel

import (
	"log/slog"
	"sync"
	"time"

	"github.com/edupulse/arena/internal/domain"
	"github.com/edupulse/arena/internal/errors"
	"github.com/edupulse/arena/internal/scoring"
)

// DisconnectBonus is awarded to the surviving participant when the opponent
// drops mid-duel.
const DisconnectBonus = 100

type submission struct {
	optionIndex      int
	secondsRemaining int
}

// Session owns one duel from pairing to outcome. All state behind its mutex;
// the lock is never held across a network send (messages are collected and
// flushed after unlock). Timers carry the generation current when they were
// armed, so a timer firing against an advanced or finished session is
// detected and dropped.
type Session struct {
	svc   *Service
	id    string
	grade int

	mu        sync.Mutex
	state     domain.DuelState
	questions []domain.Question
	parts     [2]*domain.Participant
	cursor    int
	gen       uint64
	open      bool
	subs      [2]*submission
	startedAt time.Time
}

type send struct {
	user string
	out  Outbound
}

func newSession(svc *Service, id string, p domain.Pairing, qs []domain.Question) *Session {
	return &Session{
		svc:       svc,
		id:        id,
		grade:     p.GradeLevel,
		state:     domain.DuelWaitingStart,
		questions: qs,
		parts: [2]*domain.Participant{
			{
				UserID:      p.A.UserID,
				DisplayName: p.A.DisplayName,
				Affiliation: p.A.Affiliation,
			},
			{
				UserID:      p.B.UserID,
				DisplayName: p.B.DisplayName,
				Affiliation: p.B.Affiliation,
				Synthetic:   p.Synthetic,
			},
		},
	}
}

func (d *Session) ID() string { return d.id }

// begin announces the match and arms the fixed start delay.
func (d *Session) begin() {
	d.mu.Lock()
	var sends []send
	for i, p := range d.parts {
		if p.Synthetic {
			continue
		}
		opp := d.parts[1-i]
		sends = append(sends, send{p.UserID, Outbound{
			Type: TypeMatchFound,
			Data: MatchFoundPayload{
				DuelID: d.id,
				Opponent: OpponentInfo{
					DisplayName: opp.DisplayName,
					Affiliation: opp.Affiliation,
				},
			},
		}})
	}
	d.armLocked(d.svc.startDelay, d.onStartDelay)
	d.mu.Unlock()

	d.flush(sends)
}

// armLocked schedules fn after delay, tagged with the current generation.
// Callers hold the session lock.
func (d *Session) armLocked(delay time.Duration, fn func(gen uint64)) {
	gen := d.gen
	d.svc.clock.AfterFunc(delay, func() { fn(gen) })
}

// enter is the common prologue of every timer callback: it takes the lock
// and reports whether the timer is still current. On true the lock is held.
func (d *Session) enter(gen uint64) bool {
	d.mu.Lock()
	if d.state == domain.DuelFinished || gen != d.gen {
		d.mu.Unlock()
		slog.Debug("duel: stale timer ignored", "duel", d.id, "gen", gen)
		return false
	}
	return true
}

func (d *Session) onStartDelay(gen uint64) {
	if !d.enter(gen) {
		return
	}

	d.state = domain.DuelInProgress
	d.startedAt = d.svc.clock.Now()
	sends := d.broadcast(Outbound{
		Type: TypeGameStart,
		Data: GameStartPayload{DuelID: d.id, TotalQuestions: len(d.questions)},
	})
	sends = append(sends, d.openRoundLocked()...)
	d.mu.Unlock()

	slog.Info("duel: started", "duel", d.id, "grade", d.grade)
	d.flush(sends)
}

// openRoundLocked broadcasts the question at the cursor and arms the round
// deadline. Caller holds the lock.
func (d *Session) openRoundLocked() []send {
	d.open = true
	d.subs = [2]*submission{}
	q := d.questions[d.cursor]

	d.gen++
	d.armLocked(d.svc.roundBudget, d.onRoundDeadline)

	return d.broadcast(Outbound{
		Type: TypeNewQuestion,
		Data: NewQuestionPayload{
			DuelID:        d.id,
			RoundIndex:    d.cursor,
			Prompt:        q.Prompt,
			Options:       q.Options,
			SecondsBudget: int(d.svc.roundBudget / time.Second),
		},
	})
}

// Submit records a participant's answer for the current round. The first
// submission wins; later ones for the same round are silently ignored, as
// are submissions arriving outside an open round. Arrival order is the order
// submissions acquire the session lock.
func (d *Session) Submit(userID string, optionIndex, secondsRemaining int) error {
	d.mu.Lock()

	// Submissions are only valid between a round's broadcast and its close.
	// Anything landing during the start delay or the inter-round pause targets
	// a round that is already closed or not yet announced.
	if d.state != domain.DuelInProgress || !d.open {
		d.mu.Unlock()
		slog.Debug("duel: submission outside open round ignored", "duel", d.id, "user", userID)
		return nil
	}

	idx := d.indexOf(userID)
	if idx < 0 {
		d.mu.Unlock()
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("not a participant: duel=%s user=%s", d.id, userID))
	}

	if optionIndex < 0 || optionIndex >= len(d.questions[d.cursor].Options) {
		d.mu.Unlock()
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("option index %d out of range", optionIndex))
	}

	if d.subs[idx] != nil {
		// First submission wins.
		d.mu.Unlock()
		slog.Debug("duel: duplicate submission ignored", "duel", d.id, "user", userID, "round", d.cursor)
		return nil
	}

	budget := int(d.svc.roundBudget / time.Second)
	if secondsRemaining < 0 {
		secondsRemaining = 0
	}
	if secondsRemaining > budget {
		secondsRemaining = budget
	}

	d.subs[idx] = &submission{optionIndex: optionIndex, secondsRemaining: secondsRemaining}

	var sends []send
	if opp := d.parts[1-idx]; !opp.Synthetic {
		sends = append(sends, send{opp.UserID, Outbound{
			Type: TypeOpponentAnswered,
			Data: OpponentAnsweredPayload{RoundIndex: d.cursor},
		}})
	}

	if d.allHumansAnsweredLocked() {
		sends = append(sends, d.closeRoundLocked(false)...)
	}
	d.mu.Unlock()

	d.flush(sends)
	return nil
}

func (d *Session) onRoundDeadline(gen uint64) {
	if !d.enter(gen) {
		return
	}

	sends := d.broadcast(Outbound{
		Type: TypeRoundTimeout,
		Data: RoundTimeoutPayload{RoundIndex: d.cursor},
	})
	sends = append(sends, d.closeRoundLocked(true)...)
	d.mu.Unlock()

	d.flush(sends)
}

// closeRoundLocked scores the round, advances the cursor and schedules the
// next round or finishes the duel. Caller holds the lock.
func (d *Session) closeRoundLocked(timedOut bool) []send {
	d.open = false
	q := d.questions[d.cursor]
	var sends []send

	for i, p := range d.parts {
		var delta int
		if sub := d.subs[i]; sub != nil {
			correct := sub.optionIndex == q.CorrectIndex
			delta, p.Streak = scoring.Score(correct, sub.secondsRemaining, p.Streak)
			p.Score = scoring.ClampScore(p.Score + delta)
		} else {
			// No submission: streak resets, no penalty.
			p.Streak = 0
		}

		if !p.Synthetic {
			sends = append(sends, send{p.UserID, Outbound{
				Type: TypeRoundResult,
				Data: RoundResultPayload{
					RoundIndex:   d.cursor,
					CorrectIndex: q.CorrectIndex,
					Delta:        delta,
					Score:        p.Score,
					Streak:       p.Streak,
				},
			}})
		}
	}

	d.cursor++
	if d.cursor == len(d.questions) {
		return append(sends, d.finishLocked(domain.ResultWin, "")...)
	}

	d.gen++
	d.armLocked(d.svc.roundPause, d.onPauseEnd)
	return sends
}

func (d *Session) onPauseEnd(gen uint64) {
	if !d.enter(gen) {
		return
	}

	sends := d.openRoundLocked()
	d.mu.Unlock()

	d.flush(sends)
}

// handleDisconnect ends the duel immediately in favor of the surviving
// participant. A disconnect racing end-of-sequence loses: whichever reaches
// FINISHED first wins and the other is a no-op.
func (d *Session) handleDisconnect(userID string) {
	d.mu.Lock()
	if d.state == domain.DuelFinished {
		d.mu.Unlock()
		return
	}

	idx := d.indexOf(userID)
	if idx < 0 || d.parts[idx].Synthetic {
		d.mu.Unlock()
		return
	}

	survivor := d.parts[1-idx]
	survivor.Score += DisconnectBonus

	var sends []send
	if !survivor.Synthetic {
		sends = append(sends, send{survivor.UserID, Outbound{Type: TypeOpponentDisconnected}})
	}
	sends = append(sends, d.finishLocked(domain.ResultDisconnect, survivor.UserID)...)
	d.mu.Unlock()

	slog.Info("duel: participant disconnected", "duel", d.id, "user", userID)
	d.flush(sends)
}

// finishLocked performs the single transition to FINISHED. Caller holds the
// lock and must not call it twice (guarded by state checks upstream).
func (d *Session) finishLocked(reason domain.DuelResult, winnerUserID string) []send {
	d.state = domain.DuelFinished
	d.gen++

	result := reason
	if reason == domain.ResultWin {
		switch {
		case d.parts[0].Score > d.parts[1].Score:
			winnerUserID = d.parts[0].UserID
		case d.parts[1].Score > d.parts[0].Score:
			winnerUserID = d.parts[1].UserID
		default:
			result = domain.ResultDraw
		}
	}

	finals := []FinalScore{
		{UserID: d.parts[0].UserID, DisplayName: d.parts[0].DisplayName, Score: d.parts[0].Score},
		{UserID: d.parts[1].UserID, DisplayName: d.parts[1].DisplayName, Score: d.parts[1].Score},
	}

	sends := d.broadcast(Outbound{
		Type: TypeGameOver,
		Data: GameOverPayload{
			DuelID:       d.id,
			Result:       string(result),
			WinnerUserID: winnerUserID,
			FinalScores:  finals,
		},
	})

	d.svc.finished(d, result, winnerUserID)
	return sends
}

// broadcast builds one send per human participant. Caller holds the lock.
func (d *Session) broadcast(out Outbound) []send {
	var sends []send
	for _, p := range d.parts {
		if p.Synthetic {
			continue
		}
		sends = append(sends, send{p.UserID, out})
	}
	return sends
}

func (d *Session) flush(sends []send) {
	for _, s := range sends {
		d.svc.messenger.Send(s.user, s.out)
	}
}

func (d *Session) indexOf(userID string) int {
	for i, p := range d.parts {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// allHumansAnsweredLocked reports whether every non-synthetic participant has
// submitted this round. Against a synthetic opponent the round can therefore
// close as soon as the human answers.
func (d *Session) allHumansAnsweredLocked() bool {
	for i, p := range d.parts {
		if !p.Synthetic && d.subs[i] == nil {
			return false
		}
	}
	return true
}
