package analytics

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorlive/gamehost/internal/v1/game"
)

func TestDeliversEvents(t *testing.T) {
	received := make(chan Event, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var ev Event
		require.NoError(t, json.Unmarshal(body, &ev))
		received <- ev
	}))
	defer srv.Close()

	l := New(srv.URL)
	l.Record("game_start", "ABC123", game.FamilyChess, "alice")
	l.Close()

	select {
	case ev := <-received:
		assert.Equal(t, "game_start", ev.Type)
		assert.Equal(t, "ABC123", ev.RoomID)
		assert.Equal(t, "chess", ev.GameType)
		assert.Equal(t, "alice", ev.PlayerName)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestDisabledLoggerIsNoOp(t *testing.T) {
	l := New("")
	// Neither call may panic or block.
	l.Record("game_start", "ABC123", game.FamilyChess, "alice")
	l.Close()
}

func TestCollectorErrorsAreSwallowed(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := New(srv.URL)
	for i := 0; i < 5; i++ {
		l.Record("move", "ABC123", game.FamilyBigTwo, "bob")
	}
	l.Close()

	// The breaker trips after three consecutive failures, so not every event
	// reaches the collector; the caller never sees any of it.
	assert.LessOrEqual(t, hits, 3)
	assert.GreaterOrEqual(t, hits, 1)
}

func TestUnreachableCollector(t *testing.T) {
	l := New("http://127.0.0.1:1/nope")
	l.Record("game_end", "ABC123", game.FamilyBoggle, "")
	l.Close()
}
