package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edupulse/arena/internal/domain"
	"github.com/edupulse/arena/internal/event"
)

var (
	duelsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_duels_started_total",
		Help: "Duels that entered WAITING_START.",
	})

	duelsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_duels_finished_total",
		Help: "Duels that reached FINISHED, by result.",
	}, []string{"result"})

	botMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_bot_matches_total",
		Help: "Pairings that fell back to a synthetic opponent.",
	})

	roundsPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_rounds_played_total",
		Help: "Rounds completed across all duels.",
	})
)

// MonitorGame wires the game event stream into prometheus and registers
// gauges over the live queue/session/connection counts.
func MonitorGame(eb *event.Bus, waiting, active, connected func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "arena_waiting_players",
		Help: "Players currently in a matchmaking queue.",
	}, func() float64 { return float64(waiting()) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "arena_active_duels",
		Help: "Duels currently live.",
	}, func() float64 { return float64(active()) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "arena_connected_players",
		Help: "Authenticated websocket connections.",
	}, func() float64 { return float64(connected()) })

	eb.Subscribe(domain.EventNameDuelStarted, func(ctx context.Context, e event.Event) error {
		duelsStarted.Inc()
		return nil
	})

	eb.Subscribe(domain.EventNameDuelFinished, func(ctx context.Context, e event.Event) error {
		fin := e.(domain.EventDuelFinished)
		duelsFinished.WithLabelValues(string(fin.Result)).Inc()
		roundsPlayed.Add(float64(fin.Rounds))
		return nil
	})

	eb.Subscribe(domain.EventNameBotPaired, func(ctx context.Context, e event.Event) error {
		botMatches.Inc()
		return nil
	})
}
