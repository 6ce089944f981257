package livefeed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/remote"
)

func openPostsView(t *testing.T, store *memStore, feed *fakeFeed) *View {
	t.Helper()
	var sub *Subscriber
	if feed != nil {
		sub = NewSubscriber(feed)
	}
	v := NewView(store, sub, ViewOptions{Table: remote.TablePosts})
	require.NoError(t, v.Open(context.Background()))
	t.Cleanup(func() { _ = v.Close() })
	return v
}

// ============================================================================
// SUBSCRIBER
// ============================================================================

func TestSubscriber_SameKeyReplacesHandler(t *testing.T) {
	feed := newFakeFeed()
	s := NewSubscriber(feed)
	ctx := context.Background()

	var first, second []remote.Event
	sub1, err := s.Subscribe(ctx, remote.TablePosts, remote.Filter{}, remote.Handler{
		OnEvent: func(ev remote.Event) { first = append(first, ev) },
	})
	require.NoError(t, err)
	sub2, err := s.Subscribe(ctx, remote.TablePosts, remote.Filter{}, remote.Handler{
		OnEvent: func(ev remote.Event) { second = append(second, ev) },
	})
	require.NoError(t, err)

	assert.NotSame(t, sub1, sub2)
	assert.False(t, sub1.Attached())
	assert.True(t, sub2.Attached())
	assert.Equal(t, 1, feed.opened, "one channel per (table, filter)")
	assert.Equal(t, 1, s.Active())

	feed.emit(remote.TablePosts, remote.Event{Kind: remote.Created, Item: item("1", 1)})
	assert.Empty(t, first)
	assert.Len(t, second, 1)
}

func TestSubscriber_DistinctFiltersOpenDistinctChannels(t *testing.T) {
	feed := newFakeFeed()
	s := NewSubscriber(feed)
	ctx := context.Background()

	_, err := s.Subscribe(ctx, remote.TableMedia, remote.Eq("user_id", "alice"), remote.Handler{})
	require.NoError(t, err)
	_, err = s.Subscribe(ctx, remote.TableMedia, remote.Eq("user_id", "bob"), remote.Handler{})
	require.NoError(t, err)

	assert.Equal(t, 2, feed.opened)
	assert.Equal(t, 2, s.Active())
}

func TestSubscriber_UnsubscribeOnce(t *testing.T) {
	feed := newFakeFeed()
	s := NewSubscriber(feed)

	var got int
	sub, err := s.Subscribe(context.Background(), remote.TablePosts, remote.Filter{}, remote.Handler{
		OnEvent: func(remote.Event) { got++ },
	})
	require.NoError(t, err)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
	assert.Equal(t, 1, feed.unsubscribed)
	assert.Equal(t, 0, s.Active())

	// an event already in flight at the transport must not reach the handler
	sub.ch.deliver(remote.Event{Kind: remote.Created, Item: item("1", 1)})
	assert.Zero(t, got)
	assert.False(t, sub.Attached())
}

func TestSubscriber_TakenOverHandleLeavesChannelOpen(t *testing.T) {
	feed := newFakeFeed()
	s := NewSubscriber(feed)
	ctx := context.Background()

	var got []string
	old, err := s.Subscribe(ctx, remote.TablePosts, remote.Filter{}, remote.Handler{})
	require.NoError(t, err)
	current, err := s.Subscribe(ctx, remote.TablePosts, remote.Filter{}, remote.Handler{
		OnEvent: func(ev remote.Event) { got = append(got, ev.Item.ID) },
	})
	require.NoError(t, err)

	require.NoError(t, old.Unsubscribe())
	assert.Zero(t, feed.unsubscribed)
	assert.Equal(t, 1, s.Active())
	assert.True(t, current.Attached())

	feed.emit(remote.TablePosts, remote.Event{Kind: remote.Created, Item: item("1", 1)})
	assert.Equal(t, []string{"1"}, got)

	require.NoError(t, current.Unsubscribe())
	assert.Equal(t, 1, feed.unsubscribed)
	assert.Equal(t, 0, s.Active())

	// a fresh subscribe after full teardown opens a new channel
	_, err = s.Subscribe(ctx, remote.TablePosts, remote.Filter{}, remote.Handler{})
	require.NoError(t, err)
	assert.Equal(t, 2, feed.opened)
}

func TestSubscriber_DeliversInOrder(t *testing.T) {
	feed := newFakeFeed()
	s := NewSubscriber(feed)

	var seen []string
	_, err := s.Subscribe(context.Background(), remote.TablePosts, remote.Filter{}, remote.Handler{
		OnEvent: func(ev remote.Event) { seen = append(seen, ev.Kind.String()+":"+ev.Item.ID) },
	})
	require.NoError(t, err)

	feed.emit(remote.TablePosts, remote.Event{Kind: remote.Created, Item: item("1", 1)})
	feed.emit(remote.TablePosts, remote.Event{Kind: remote.Updated, Item: item("1", 1)})
	feed.emit(remote.TablePosts, remote.Event{Kind: remote.Deleted, Item: remote.Item{ID: "1"}})

	assert.Equal(t, []string{"created:1", "updated:1", "deleted:1"}, seen)
}

// ============================================================================
// VIEW
// ============================================================================

func TestView_OpenLoadsNewestFirst(t *testing.T) {
	store := newMemStore("alice")
	store.seed(remote.TablePosts, item("1", 1), item("3", 3), item("2", 2))

	v := openPostsView(t, store, newFakeFeed())

	assert.Equal(t, []string{"3", "2", "1"}, ids(v.Items()))
	assert.True(t, v.Live())
}

func TestView_AppliesFeedEvents(t *testing.T) {
	store := newMemStore("alice")
	feed := newFakeFeed()
	var snapshots int
	v := NewView(store, NewSubscriber(feed), ViewOptions{
		Table:    remote.TablePosts,
		OnChange: func([]remote.Item) { snapshots++ },
	})
	require.NoError(t, v.Open(context.Background()))
	defer v.Close()

	feed.emit(remote.TablePosts, remote.Event{Kind: remote.Created, Item: item("1", 1)})
	feed.emit(remote.TablePosts, remote.Event{Kind: remote.Created, Item: item("2", 2)})
	feed.emit(remote.TablePosts, remote.Event{Kind: remote.Created, Item: item("2", 2)})

	assert.Equal(t, []string{"2", "1"}, ids(v.Items()))
	assert.Equal(t, 3, snapshots, "initial load plus two effective creates")
}

func TestView_ResyncRefetches(t *testing.T) {
	store := newMemStore("alice")
	feed := newFakeFeed()
	v := openPostsView(t, store, feed)
	require.Equal(t, 0, len(v.Items()))

	// rows written while disconnected
	store.seed(remote.TablePosts, item("7", 7))
	feed.resync(remote.TablePosts)

	assert.Equal(t, []string{"7"}, ids(v.Items()))
	assert.Equal(t, 2, store.callCount("query"))
}

func TestView_ResyncFailureReported(t *testing.T) {
	store := newMemStore("alice")
	feed := newFakeFeed()
	var reported error
	v := NewView(store, NewSubscriber(feed), ViewOptions{
		Table:   remote.TablePosts,
		OnError: func(err error) { reported = err },
	})
	require.NoError(t, v.Open(context.Background()))
	defer v.Close()

	store.failWith = cuberrors.ConnectivityError("backend down", nil)
	feed.resync(remote.TablePosts)

	require.Error(t, reported)
	assert.True(t, cuberrors.IsConnectivity(reported))
}

func TestView_CloseUnsubscribesBeforeDrop(t *testing.T) {
	store := newMemStore("alice")
	feed := newFakeFeed()
	v := NewView(store, NewSubscriber(feed), ViewOptions{Table: remote.TablePosts})
	require.NoError(t, v.Open(context.Background()))

	require.NoError(t, v.Close())
	require.NoError(t, v.Close())

	assert.Equal(t, 1, feed.unsubscribed)
	assert.False(t, v.Live())

	feed.emit(remote.TablePosts, remote.Event{Kind: remote.Created, Item: item("1", 1)})
	assert.Empty(t, v.Items())

	assert.True(t, errors.Is(v.Refresh(context.Background()), ErrViewClosed))
	assert.True(t, errors.Is(v.Open(context.Background()), ErrViewClosed))
}

func TestView_SharedKeyCloseKeepsOtherViewLive(t *testing.T) {
	store := newMemStore("alice")
	feed := newFakeFeed()
	subscriber := NewSubscriber(feed)
	ctx := context.Background()

	first := NewView(store, subscriber, ViewOptions{Table: remote.TablePosts})
	require.NoError(t, first.Open(ctx))
	second := NewView(store, subscriber, ViewOptions{Table: remote.TablePosts})
	require.NoError(t, second.Open(ctx))
	defer second.Close()

	assert.False(t, first.Live(), "the second view took the channel over")
	assert.True(t, second.Live())

	require.NoError(t, first.Close())
	assert.Zero(t, feed.unsubscribed)
	assert.True(t, second.Live())

	feed.emit(remote.TablePosts, remote.Event{Kind: remote.Created, Item: item("x", 1)})
	assert.Equal(t, []string{"x"}, ids(second.Items()))

	require.NoError(t, second.Close())
	assert.Equal(t, 1, feed.unsubscribed)
}

func TestView_TakenOverViewRefreshesAfterMutation(t *testing.T) {
	store := newMemStore("alice")
	feed := newFakeFeed()
	subscriber := NewSubscriber(feed)
	ctx := context.Background()

	first := NewView(store, subscriber, ViewOptions{Table: remote.TablePosts})
	require.NoError(t, first.Open(ctx))
	defer first.Close()
	second := NewView(store, subscriber, ViewOptions{Table: remote.TablePosts})
	require.NoError(t, second.Open(ctx))
	defer second.Close()

	// another user's row, seen by neither view yet
	other := item("9", 9)
	other.OwnerID = "bob"
	store.seed(remote.TablePosts, other)

	_, err := NewDispatcher(store, first, "alice").CreateItem(ctx, map[string]any{"content": "hello"})
	require.NoError(t, err)

	assert.Contains(t, ids(first.Items()), "9", "a detached view refetches after its own writes")
}

func TestView_FeedUnavailableFallsBackToRefetch(t *testing.T) {
	store := newMemStore("alice")
	feed := newFakeFeed()
	feed.failWith = cuberrors.ConnectivityError("no websocket", nil)

	v := openPostsView(t, store, feed)

	assert.False(t, v.Live())
}

func TestView_RefreshErrorIsCategorized(t *testing.T) {
	store := newMemStore("alice")
	v := openPostsView(t, store, nil)

	store.failWith = errors.New("dial tcp 127.0.0.1:8787: connection refused")
	err := v.Refresh(context.Background())

	require.Error(t, err)
	assert.True(t, cuberrors.IsConnectivity(err))
}
