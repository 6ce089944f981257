package service

import (
	"context"
	"io"
	"os"

	"github.com/go-resty/resty/v2"

	"github.com/BelikanM/cub/pkg/api"
	"github.com/BelikanM/cub/pkg/auth"
	"github.com/BelikanM/cub/pkg/client"
	"github.com/BelikanM/cub/pkg/config"
	"github.com/BelikanM/cub/pkg/livefeed"
	"github.com/BelikanM/cub/pkg/logger"
	"github.com/BelikanM/cub/pkg/output"
	"github.com/BelikanM/cub/pkg/realtime"
	"github.com/BelikanM/cub/pkg/remote"
)

// Session bundles what a logged-in command needs: the API clients, the
// store for the configured backend and, when attached, a change feed.
type Session struct {
	API      *api.Client
	Store    remote.RemoteStore
	UserID   string
	UserName string
	Out      io.Writer
	Format   output.Format

	// tableRoutes is set for the realtime backend, where clients write
	// rows directly and upload objects separately.
	tableRoutes bool
	subscriber  *livefeed.Subscriber
	closers     []io.Closer
}

// NewSession assembles a session from explicit parts. feed may be nil.
func NewSession(httpClient *resty.Client, store remote.RemoteStore, feed remote.ChangeFeed, userID, userName string) *Session {
	s := &Session{
		API:      api.New(httpClient),
		Store:    store,
		UserID:   userID,
		UserName: userName,
		Out:      os.Stdout,
		Format:   output.FormatText,
	}
	if feed != nil {
		s.subscriber = livefeed.NewSubscriber(feed)
	}
	return s
}

// OpenSession builds a session from the stored credentials and config.
// withFeed attaches the realtime change feed; if it cannot connect the
// session falls back to refetching after each mutation.
func OpenSession(ctx context.Context, withFeed bool) (*Session, error) {
	creds, err := auth.RequireCredentials()
	if err != nil {
		return nil, err
	}

	client.Init()
	client.SetAuthToken(creds.AccessToken)
	hc := client.GetClient()

	backend := config.GetString("api.backend")
	var store remote.RemoteStore
	if backend == config.BackendREST {
		store = api.NewStore(hc)
	} else {
		store = api.NewTableStore(hc)
	}

	var feed *realtime.Client
	if withFeed && backend != config.BackendREST {
		feed, err = connectFeed(ctx, creds.AccessToken)
		if err != nil {
			logger.Warn("Realtime unavailable, falling back to refetch", "error", err)
			feed = nil
		}
	}

	var s *Session
	if feed != nil {
		s = NewSession(hc, store, feed, creds.UserID, creds.Name)
		s.closers = append(s.closers, feed)
	} else {
		s = NewSession(hc, store, nil, creds.UserID, creds.Name)
	}
	s.tableRoutes = backend != config.BackendREST
	s.Format = output.GetOutputFormat()
	return s, nil
}

func connectFeed(ctx context.Context, token string) (*realtime.Client, error) {
	cfg, err := realtime.ConfigFromBaseURL(config.GetString("api.base_url"), config.GetString("realtime.path"))
	if err != nil {
		return nil, err
	}
	cfg.HeartbeatInterval = config.GetMillis("realtime.heartbeat_ms")
	cfg.ReconnectBaseDelay = config.GetMillis("realtime.reconnect_base_ms")
	cfg.ReconnectMaxDelay = config.GetMillis("realtime.reconnect_max_ms")

	rt := realtime.NewClient(cfg)
	if err := rt.Connect(ctx, token); err != nil {
		return nil, err
	}
	return rt, nil
}

// Live reports whether views opened from this session receive pushed changes.
func (s *Session) Live() bool {
	return s.subscriber != nil
}

// OpenView loads table rows matching filter and keeps them current.
func (s *Session) OpenView(ctx context.Context, table string, filter remote.Filter, onChange func([]remote.Item)) (*livefeed.View, error) {
	v := livefeed.NewView(s.Store, s.subscriber, livefeed.ViewOptions{
		Table:    table,
		Filter:   filter,
		OnChange: onChange,
		OnError: func(err error) {
			logger.Warn("View refresh failed", "table", table, "error", err)
		},
	})
	if err := v.Open(ctx); err != nil {
		_ = v.Close()
		return nil, auth.HandleSessionError(err)
	}
	return v, nil
}

// Dispatcher returns a dispatcher acting as the session user on v.
func (s *Session) Dispatcher(v *livefeed.View) *livefeed.Dispatcher {
	return livefeed.NewDispatcher(s.Store, v, s.UserID)
}

// Close releases the change feed, if any.
func (s *Session) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

func (s *Session) printItems(table string, items []remote.Item) error {
	return output.WriteItems(s.Out, s.Format, table, items)
}

func (s *Session) printRecord(title string, record map[string]any) error {
	return output.WriteRecord(s.Out, s.Format, title, record)
}
