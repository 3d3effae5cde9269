package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/arena/internal/directory"
	"github.com/edupulse/arena/internal/domain"
	"github.com/edupulse/arena/internal/duel"
	"github.com/edupulse/arena/internal/gate"
	"github.com/edupulse/arena/internal/matchmaking"
	"github.com/edupulse/arena/internal/questions"
)

var e2eSecret = []byte("arena-e2e-secret")

var (
	alice = domain.Identity{UserID: "u-alice", DisplayName: "Alice", GradeLevel: 5, Affiliation: "Oakwood Elementary"}
	bob   = domain.Identity{UserID: "u-bob", DisplayName: "Bob", GradeLevel: 5, Affiliation: "Riverdale Elementary"}
)

// newTestServer stands up the full websocket stack over real HTTP: gate,
// matchmaking, duels and hub, with the start/pause delays compressed so the
// whole flow runs in milliseconds. The round budget stays at its production
// length: rounds close because both players answer, never by timeout.
func newTestServer(t *testing.T, botWait time.Duration) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()

	duels := duel.NewService(duel.Config{
		Source:           questions.NewStaticSource(10),
		Messenger:        hub,
		QuestionsPerDuel: 2,
		StartDelay:       20 * time.Millisecond,
		RoundBudget:      15 * time.Second,
		RoundPause:       20 * time.Millisecond,
	})

	queue := matchmaking.NewQueue(matchmaking.Config{
		BotWait: botWait,
		OnPair:  duels.StartMatch,
	})
	t.Cleanup(queue.Close)

	g := gate.New(gate.Config{
		Secret:    e2eSecret,
		Directory: directory.NewStatic(alice, bob),
	})

	e := gin.New()
	New(Config{Gate: g, Queue: queue, Duels: duels, Hub: hub}).Register(e)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func signE2EToken(t *testing.T, userID string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(e2eSecret)
	require.NoError(t, err)
	return signed
}

// client is a test-side player: a real websocket connection plus helpers to
// send game messages and wait for typed server messages.
type client struct {
	t  *testing.T
	ws *websocket.Conn
}

func connect(t *testing.T, srv *httptest.Server, userID string) *client {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/arena?token=" + signE2EToken(t, userID)
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { ws.Close() })

	return &client{t: t, ws: ws}
}

func (c *client) send(msgType string, data any) {
	c.t.Helper()

	b, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.ws.WriteJSON(Envelope{Type: msgType, Data: b}))
}

func (c *client) findMatch() { c.send(TypeFindMatch, struct{}{}) }

func (c *client) submit(duelID string, optionIndex, secondsRemaining int) {
	c.send(TypeSubmitAnswer, SubmitAnswerRequest{
		DuelID:           duelID,
		OptionIndex:      optionIndex,
		SecondsRemaining: secondsRemaining,
	})
}

// await reads frames until one of the wanted type arrives, decoding its data
// into out. Frames of other types are skipped: ordering between, say, an
// opponent_answered and the round_result that follows is not what these tests
// pin down.
func (c *client) await(msgType string, out any) {
	c.t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(c.t, c.ws.SetReadDeadline(deadline))

		var frame struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(c.t, c.ws.ReadJSON(&frame), "waiting for %q", msgType)

		if frame.Type != msgType {
			continue
		}
		if out != nil {
			require.NoError(c.t, json.Unmarshal(frame.Data, out))
		}
		return
	}
}

func TestArena_FullDuel(t *testing.T) {
	srv := newTestServer(t, time.Hour)

	a := connect(t, srv, alice.UserID)
	b := connect(t, srv, bob.UserID)

	a.findMatch()
	b.findMatch()

	var aMatch, bMatch duel.MatchFoundPayload
	a.await(duel.TypeMatchFound, &aMatch)
	b.await(duel.TypeMatchFound, &bMatch)

	assert.Equal(t, bob.DisplayName, aMatch.Opponent.DisplayName)
	assert.Equal(t, bob.Affiliation, aMatch.Opponent.Affiliation)
	assert.Equal(t, alice.DisplayName, bMatch.Opponent.DisplayName)
	require.Equal(t, aMatch.DuelID, bMatch.DuelID)
	duelID := aMatch.DuelID

	var start duel.GameStartPayload
	a.await(duel.TypeGameStart, &start)
	b.await(duel.TypeGameStart, nil)
	assert.Equal(t, 2, start.TotalQuestions)

	// Round 0: Alice answers right with 10s on the clock, Bob answers wrong.
	var q duel.NewQuestionPayload
	a.await(duel.TypeNewQuestion, &q)
	b.await(duel.TypeNewQuestion, nil)
	require.Equal(t, 0, q.RoundIndex)
	require.Len(t, q.Options, 4)

	a.submit(duelID, 1, 10)
	b.await(duel.TypeOpponentAnswered, nil)
	b.submit(duelID, 0, 12)

	var aRes, bRes duel.RoundResultPayload
	a.await(duel.TypeRoundResult, &aRes)
	b.await(duel.TypeRoundResult, &bRes)

	assert.Equal(t, 15, aRes.Delta)
	assert.Equal(t, 15, aRes.Score)
	assert.Equal(t, 1, aRes.Streak)
	assert.Equal(t, 1, aRes.CorrectIndex)

	assert.Equal(t, -5, bRes.Delta)
	assert.Equal(t, 0, bRes.Score, "score floors at zero")
	assert.Equal(t, 0, bRes.Streak)

	// Round 1: both answer right, Alice with less time left.
	a.await(duel.TypeNewQuestion, &q)
	b.await(duel.TypeNewQuestion, nil)
	require.Equal(t, 1, q.RoundIndex)

	a.submit(duelID, 1, 4)
	b.submit(duelID, 1, 10)

	a.await(duel.TypeRoundResult, &aRes)
	b.await(duel.TypeRoundResult, &bRes)
	assert.Equal(t, 12, aRes.Delta)
	assert.Equal(t, 27, aRes.Score)
	assert.Equal(t, 15, bRes.Score)

	var aOver, bOver duel.GameOverPayload
	a.await(duel.TypeGameOver, &aOver)
	b.await(duel.TypeGameOver, &bOver)

	assert.Equal(t, string(domain.ResultWin), aOver.Result)
	assert.Equal(t, alice.UserID, aOver.WinnerUserID)
	assert.Equal(t, aOver, bOver, "both players see the same outcome")

	scores := map[string]int{}
	for _, fs := range aOver.FinalScores {
		scores[fs.UserID] = fs.Score
	}
	assert.Equal(t, map[string]int{alice.UserID: 27, bob.UserID: 15}, scores)
}

func TestArena_BotFallback(t *testing.T) {
	srv := newTestServer(t, 50*time.Millisecond)

	a := connect(t, srv, alice.UserID)
	a.findMatch()

	var match duel.MatchFoundPayload
	a.await(duel.TypeMatchFound, &match)
	assert.NotEmpty(t, match.Opponent.DisplayName)
	assert.Equal(t, "Battle Arena", match.Opponent.Affiliation)

	a.await(duel.TypeGameStart, nil)

	// Rounds close on Alice's answer alone: the synthetic opponent never
	// submits and never blocks the duel.
	for round := 0; round < 2; round++ {
		var q duel.NewQuestionPayload
		a.await(duel.TypeNewQuestion, &q)
		require.Equal(t, round, q.RoundIndex)

		a.submit(match.DuelID, 1, 10)

		var res duel.RoundResultPayload
		a.await(duel.TypeRoundResult, &res)
		assert.Equal(t, 15, res.Delta)
	}

	var over duel.GameOverPayload
	a.await(duel.TypeGameOver, &over)
	assert.Equal(t, string(domain.ResultWin), over.Result)
	assert.Equal(t, alice.UserID, over.WinnerUserID)
}

func TestArena_DisconnectForfeits(t *testing.T) {
	srv := newTestServer(t, time.Hour)

	a := connect(t, srv, alice.UserID)
	b := connect(t, srv, bob.UserID)

	a.findMatch()
	b.findMatch()

	var match duel.MatchFoundPayload
	a.await(duel.TypeMatchFound, &match)
	b.await(duel.TypeMatchFound, nil)
	a.await(duel.TypeGameStart, nil)
	b.await(duel.TypeGameStart, nil)
	a.await(duel.TypeNewQuestion, nil)
	b.await(duel.TypeNewQuestion, nil)

	a.submit(match.DuelID, 1, 10)
	require.NoError(t, b.ws.Close())

	a.await(duel.TypeOpponentDisconnected, nil)

	var over duel.GameOverPayload
	a.await(duel.TypeGameOver, &over)
	assert.Equal(t, string(domain.ResultDisconnect), over.Result)
	assert.Equal(t, alice.UserID, over.WinnerUserID)

	for _, fs := range over.FinalScores {
		if fs.UserID == alice.UserID {
			assert.Equal(t, duel.DisconnectBonus, fs.Score, "survivor gets the forfeit bonus")
		}
	}
}

func TestArena_RejectsBadToken(t *testing.T) {
	srv := newTestServer(t, time.Hour)

	tests := map[string]string{
		"missing token": srv.URL + "/ws/arena",
		"garbage token": srv.URL + "/ws/arena?token=not-a-jwt",
		"unknown user":  srv.URL + "/ws/arena?token=" + signE2EToken(t, "u-nobody"),
	}

	for name, url := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Get(url)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}
