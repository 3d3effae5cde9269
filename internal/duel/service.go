// Package duel runs active duels: one Session per match, plus a Service that
// creates sessions from pairings and routes submissions and disconnects to
// the owning session.
package duel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/edupulse/arena/internal/domain"
	"github.com/edupulse/arena/internal/errors"
	"github.com/edupulse/arena/internal/event"
	"github.com/edupulse/arena/internal/questions"
)

const (
	DefaultQuestionsPerDuel = 20
	DefaultStartDelay       = 3 * time.Second
	DefaultRoundBudget      = 15 * time.Second
	DefaultRoundPause       = 3 * time.Second
	DefaultDrawTimeout      = 10 * time.Second
	DefaultRequeueDelay     = 2 * time.Second
)

type Config struct {
	Clock     clockwork.Clock
	Source    questions.Source
	Messenger Messenger
	EventBus  *event.Bus

	// Requeue returns a player to matchmaking when their duel could not be
	// created (question source failure). It runs RequeueDelay after the
	// failure, so a dead question source cannot spin a pair-draw-requeue loop.
	Requeue func(domain.Identity)

	QuestionsPerDuel int
	StartDelay       time.Duration
	RoundBudget      time.Duration
	RoundPause       time.Duration
	DrawTimeout      time.Duration
	RequeueDelay     time.Duration
}

type Service struct {
	clock     clockwork.Clock
	source    questions.Source
	messenger Messenger
	eb        *event.Bus
	requeue   func(domain.Identity)

	questionsPerDuel int
	startDelay       time.Duration
	roundBudget      time.Duration
	roundPause       time.Duration
	drawTimeout      time.Duration
	requeueDelay     time.Duration

	regMu  sync.Mutex
	byID   map[string]*Session
	byUser map[string]*Session
}

func NewService(c Config) *Service {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.QuestionsPerDuel <= 0 {
		c.QuestionsPerDuel = DefaultQuestionsPerDuel
	}
	if c.StartDelay <= 0 {
		c.StartDelay = DefaultStartDelay
	}
	if c.RoundBudget <= 0 {
		c.RoundBudget = DefaultRoundBudget
	}
	if c.RoundPause <= 0 {
		c.RoundPause = DefaultRoundPause
	}
	if c.DrawTimeout <= 0 {
		c.DrawTimeout = DefaultDrawTimeout
	}
	if c.RequeueDelay <= 0 {
		c.RequeueDelay = DefaultRequeueDelay
	}

	return &Service{
		clock:            c.Clock,
		source:           c.Source,
		messenger:        c.Messenger,
		eb:               c.EventBus,
		requeue:          c.Requeue,
		questionsPerDuel: c.QuestionsPerDuel,
		startDelay:       c.StartDelay,
		roundBudget:      c.RoundBudget,
		roundPause:       c.RoundPause,
		drawTimeout:      c.DrawTimeout,
		requeueDelay:     c.RequeueDelay,
		byID:             make(map[string]*Session),
		byUser:           make(map[string]*Session),
	}
}

// StartMatch turns a pairing into a live session. The question draw happens
// on a fresh goroutine so a slow or failing generator never blocks the
// matchmaking path that produced the pairing.
func (s *Service) StartMatch(p domain.Pairing) {
	go s.startMatch(p)
}

func (s *Service) startMatch(p domain.Pairing) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("duel: panic while starting match", "grade", p.GradeLevel, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.drawTimeout)
	defer cancel()

	qs, err := questions.Draw(ctx, s.source, p.GradeLevel, s.questionsPerDuel)
	if err != nil {
		slog.Error("duel: question draw failed, returning players to queue",
			"grade", p.GradeLevel,
			"error", err,
		)
		// Requeue timers are armed before the error messages go out, and only
		// after the delay: an instant requeue would re-pair the same two
		// players and hammer a question source that is already down.
		for _, id := range humanIdentities(p) {
			if s.requeue == nil {
				continue
			}
			id := id
			s.clock.AfterFunc(s.requeueDelay, func() { s.requeue(id) })
		}
		for _, id := range humanIdentities(p) {
			s.messenger.Send(id.UserID, Outbound{
				Type: TypeMatchError,
				Data: MatchErrorPayload{
					Reason:    "could not prepare questions, please retry",
					Retryable: true,
				},
			})
		}
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		slog.Error("duel: generate duel ID", "error", err)
		return
	}

	sess := newSession(s, id.String(), p, qs)

	s.regMu.Lock()
	s.byID[sess.id] = sess
	for _, pid := range humanIdentities(p) {
		s.byUser[pid.UserID] = sess
	}
	s.regMu.Unlock()

	if s.eb != nil {
		s.eb.Publish(context.Background(), domain.EventDuelStarted{
			DuelID:     sess.id,
			GradeLevel: p.GradeLevel,
			Synthetic:  p.Synthetic,
		})
	}

	sess.begin()
}

// Submit routes a submit_answer message to the owning session.
func (s *Service) Submit(userID, duelID string, optionIndex, secondsRemaining int) error {
	s.regMu.Lock()
	sess, ok := s.byID[duelID]
	s.regMu.Unlock()

	if !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("no such duel: %s", duelID))
	}

	return sess.Submit(userID, optionIndex, secondsRemaining)
}

// Disconnect forfeits the user's active duel, if any. Idempotent.
func (s *Service) Disconnect(userID string) {
	s.regMu.Lock()
	sess, ok := s.byUser[userID]
	s.regMu.Unlock()

	if !ok {
		return
	}

	sess.handleDisconnect(userID)
}

// Active reports the number of live sessions, for telemetry.
func (s *Service) Active() int {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	return len(s.byID)
}

// finished releases a session from the registry and publishes the outcome.
// Called by the session during its transition to FINISHED.
func (s *Service) finished(d *Session, result domain.DuelResult, winnerUserID string) {
	s.regMu.Lock()
	delete(s.byID, d.id)
	for _, p := range d.parts {
		if !p.Synthetic {
			delete(s.byUser, p.UserID)
		}
	}
	s.regMu.Unlock()

	slog.Info("duel: finished",
		"duel", d.id,
		"result", string(result),
		"winner", winnerUserID,
		"rounds", d.cursor,
	)
	if s.eb != nil {
		s.eb.Publish(context.Background(), domain.EventDuelFinished{
			DuelID:       d.id,
			GradeLevel:   d.grade,
			Result:       result,
			WinnerUserID: winnerUserID,
			Rounds:       d.cursor,
		})
	}
}

func humanIdentities(p domain.Pairing) []domain.Identity {
	ids := []domain.Identity{p.A}
	if !p.Synthetic {
		ids = append(ids, p.B)
	}
	return ids
}
