// Package matchmaking holds the per-grade waiting lists and pairs players
// into duels. Pairing is strict FIFO within a grade; a player left waiting
// past the bot wait is matched against a synthetic opponent so nobody is
// stuck in the queue forever.
package matchmaking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/edupulse/arena/internal/domain"
	"github.com/edupulse/arena/internal/event"
)

const defaultBotWait = 30 * time.Second

var botNames = []string{"Quiz Bot", "Professor Byte", "Captain Cortex", "Tutor Tron"}

type Config struct {
	Clock    clockwork.Clock
	BotWait  time.Duration
	EventBus *event.Bus

	// OnPair runs synchronously as part of the enqueue (or bot timer) call
	// that completed the pairing. Both entries are already out of the queue
	// when it runs.
	OnPair func(domain.Pairing)
}

type entry struct {
	identity   domain.Identity
	enqueuedAt time.Time
	gen        uint64
	botTimer   clockwork.Timer
}

type Queue struct {
	clock   clockwork.Clock
	botWait time.Duration
	onPair  func(domain.Pairing)
	eb      *event.Bus

	mu      sync.Mutex
	grades  map[int][]*entry
	byUser  map[string]*entry
	nextGen uint64
	closed  bool
}

func NewQueue(c Config) *Queue {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.BotWait <= 0 {
		c.BotWait = defaultBotWait
	}

	return &Queue{
		clock:   c.Clock,
		botWait: c.BotWait,
		onPair:  c.OnPair,
		eb:      c.EventBus,
		grades:  make(map[int][]*entry),
		byUser:  make(map[string]*entry),
	}
}

// Enqueue adds the identity to its grade's waiting list. If a second player
// is already waiting, the two oldest entries are paired before Enqueue
// returns, so a concurrent third caller cannot slip into this pair.
// Re-enqueueing while already waiting is a no-op.
func (q *Queue) Enqueue(id domain.Identity) {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		return
	}

	if _, waiting := q.byUser[id.UserID]; waiting {
		q.mu.Unlock()
		slog.Debug("matchmaking: already queued", "user", id.UserID)
		return
	}

	q.nextGen++
	e := &entry{
		identity:   id,
		enqueuedAt: q.clock.Now(),
		gen:        q.nextGen,
	}
	q.grades[id.GradeLevel] = append(q.grades[id.GradeLevel], e)
	q.byUser[id.UserID] = e

	if len(q.grades[id.GradeLevel]) >= 2 {
		a, b := q.popPairLocked(id.GradeLevel)
		q.mu.Unlock()

		slog.Info("matchmaking: paired",
			"grade", id.GradeLevel,
			"a", a.identity.UserID,
			"b", b.identity.UserID,
		)
		q.onPair(domain.Pairing{
			A:          a.identity,
			B:          b.identity,
			GradeLevel: id.GradeLevel,
		})
		return
	}

	// Alone in the queue: arm the synthetic-opponent fallback. The captured
	// generation makes the timer a no-op if this entry is paired or leaves
	// before it fires.
	gen := e.gen
	e.botTimer = q.clock.AfterFunc(q.botWait, func() {
		q.botFallback(id.UserID, gen)
	})
	q.mu.Unlock()

	slog.Info("matchmaking: waiting", "grade", id.GradeLevel, "user", id.UserID)
}

// Leave removes the user's waiting entry wherever it is. Idempotent.
func (q *Queue) Leave(userID string) {
	q.mu.Lock()
	e, ok := q.byUser[userID]
	if !ok {
		q.mu.Unlock()
		return
	}
	q.removeLocked(e)
	q.mu.Unlock()

	slog.Info("matchmaking: left queue", "user", userID)
}

// Waiting reports the total number of queued players, for telemetry.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.byUser)
}

// Close empties the queues and drops further enqueues.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for _, e := range q.byUser {
		if e.botTimer != nil {
			e.botTimer.Stop()
		}
	}
	q.grades = make(map[int][]*entry)
	q.byUser = make(map[string]*entry)
}

func (q *Queue) botFallback(userID string, gen uint64) {
	q.mu.Lock()
	e, ok := q.byUser[userID]
	if !ok || e.gen != gen {
		// Paired or left just before the timer fired.
		q.mu.Unlock()
		slog.Debug("matchmaking: stale bot timer ignored", "user", userID)
		return
	}
	q.removeLocked(e)
	q.mu.Unlock()

	grade := e.identity.GradeLevel
	slog.Info("matchmaking: no opponent found, pairing with bot",
		"grade", grade,
		"user", userID,
	)
	if q.eb != nil {
		q.eb.Publish(context.Background(), domain.EventBotPaired{GradeLevel: grade})
	}

	q.onPair(domain.Pairing{
		A:          e.identity,
		B:          syntheticOpponent(grade, e.gen),
		GradeLevel: grade,
		Synthetic:  true,
	})
}

// popPairLocked dequeues the two oldest entries of a grade. Caller holds the lock.
func (q *Queue) popPairLocked(grade int) (a, b *entry) {
	list := q.grades[grade]
	a, b = list[0], list[1]
	q.grades[grade] = list[2:]
	if len(q.grades[grade]) == 0 {
		delete(q.grades, grade)
	}

	for _, e := range []*entry{a, b} {
		delete(q.byUser, e.identity.UserID)
		if e.botTimer != nil {
			e.botTimer.Stop()
		}
	}
	return a, b
}

func (q *Queue) removeLocked(e *entry) {
	grade := e.identity.GradeLevel
	list := q.grades[grade]
	for i, cand := range list {
		if cand == e {
			q.grades[grade] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(q.grades[grade]) == 0 {
		delete(q.grades, grade)
	}

	delete(q.byUser, e.identity.UserID)
	if e.botTimer != nil {
		e.botTimer.Stop()
	}
}

func syntheticOpponent(grade int, gen uint64) domain.Identity {
	return domain.Identity{
		UserID:      fmt.Sprintf("bot:%s", uuid.NewString()),
		DisplayName: botNames[int(gen)%len(botNames)],
		GradeLevel:  grade,
		Affiliation: "Battle Arena",
	}
}
