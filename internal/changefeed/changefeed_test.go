package changefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("user_id=eq.alice")
	require.NoError(t, err)
	assert.Equal(t, Filter{Column: "user_id", Value: "alice"}, f)
	assert.Equal(t, "user_id=eq.alice", f.String())

	f, err = ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, Filter{}, f)

	_, err = ParseFilter("user_id=gt.3")
	assert.Error(t, err)
	_, err = ParseFilter("=eq.x")
	assert.Error(t, err)
}

func TestFilterMatches(t *testing.T) {
	f := Filter{Column: "user_id", Value: "alice"}

	assert.True(t, f.Matches(Change{Event: Insert, New: map[string]any{"user_id": "alice"}}))
	assert.False(t, f.Matches(Change{Event: Insert, New: map[string]any{"user_id": "bob"}}))
	assert.True(t, f.Matches(Change{Event: Delete, Old: map[string]any{"user_id": "alice"}}))
	assert.False(t, f.Matches(Change{Event: Delete, New: map[string]any{"user_id": "alice"}}))
	assert.True(t, f.Matches(Change{Event: Update,
		New: map[string]any{"user_id": "bob"}, Old: map[string]any{"user_id": "alice"}}))
	assert.False(t, f.Matches(Change{Event: Insert, New: map[string]any{"user_id": nil}}))
	assert.True(t, Filter{Column: "likes", Value: "3"}.Matches(Change{Event: Insert, New: map[string]any{"likes": float64(3)}}))
	assert.True(t, Filter{}.Matches(Change{Event: Insert}))
}

func TestToRow(t *testing.T) {
	row, err := ToRow(struct {
		ID    string `json:"id"`
		Likes int    `json:"likes"`
	}{ID: "p1", Likes: 2})
	require.NoError(t, err)
	assert.Equal(t, "p1", row["id"])
	assert.Equal(t, float64(2), row["likes"])
}

func TestBroker_DeliversToMatchingSubscribers(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	var all, mine, media []Change
	b.Subscribe("posts", Filter{}, func(c Change) { all = append(all, c) })
	b.Subscribe("posts", Filter{Column: "user_id", Value: "alice"}, func(c Change) { mine = append(mine, c) })
	b.Subscribe("media", Filter{}, func(c Change) { media = append(media, c) })

	ctx := context.Background()
	b.Publish(ctx, Change{Table: "posts", Event: Insert, New: map[string]any{"id": "1", "user_id": "alice"}})
	b.Publish(ctx, Change{Table: "posts", Event: Insert, New: map[string]any{"id": "2", "user_id": "bob"}})

	assert.Len(t, all, 2)
	require.Len(t, mine, 1)
	assert.Equal(t, "1", mine[0].New["id"])
	assert.False(t, mine[0].CommitTimestamp.IsZero())
	assert.Empty(t, media)
}

func TestBroker_CancelIsIdempotent(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	n := 0
	cancel := b.Subscribe("posts", Filter{}, func(Change) { n++ })
	other := b.Subscribe("posts", Filter{}, func(Change) {})
	assert.Equal(t, 2, b.Count())

	cancel()
	cancel()
	assert.Equal(t, 1, b.Count())

	b.Publish(context.Background(), Change{Table: "posts", Event: Insert, New: map[string]any{}})
	assert.Zero(t, n)
	other()
	assert.Zero(t, b.Count())
}

// loopRelay echoes published payloads back to its subscriber
type loopRelay struct {
	mu   sync.Mutex
	ch   chan []byte
	fail bool
	sent int
}

func (r *loopRelay) Publish(_ context.Context, _ string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("relay down")
	}
	r.sent++
	r.ch <- payload
	return nil
}

func (r *loopRelay) Subscribe(context.Context, string) (<-chan []byte, error) {
	return r.ch, nil
}

func TestBroker_Relay(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	relay := &loopRelay{ch: make(chan []byte, 4)}
	require.NoError(t, b.UseRelay(relay))

	got := make(chan Change, 4)
	b.Subscribe("follows", Filter{}, func(c Change) { got <- c })

	b.Publish(context.Background(), Change{Table: "follows", Event: Delete, Old: map[string]any{"id": "f1"}})

	select {
	case c := <-got:
		assert.Equal(t, Delete, c.Event)
		assert.Equal(t, "f1", c.Old["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("relayed change not delivered")
	}
	assert.Equal(t, 1, relay.sent)
}

func TestBroker_RelayFailureFallsBackToLocal(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	relay := &loopRelay{ch: make(chan []byte, 4), fail: true}
	require.NoError(t, b.UseRelay(relay))

	var got []Change
	b.Subscribe("posts", Filter{}, func(c Change) { got = append(got, c) })

	b.Publish(context.Background(), Change{Table: "posts", Event: Insert, New: map[string]any{"id": "x"}})

	assert.Len(t, got, 1)
}
