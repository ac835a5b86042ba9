package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/coachportal/internal/client/auth"
	"github.com/dmitrijs2005/coachportal/internal/client/cachestore"
	"github.com/dmitrijs2005/coachportal/internal/client/client"
	"github.com/dmitrijs2005/coachportal/internal/client/config"
	"github.com/dmitrijs2005/coachportal/internal/client/identity"
	"github.com/dmitrijs2005/coachportal/internal/client/realtime"
	"github.com/dmitrijs2005/coachportal/internal/client/repositories/kv"
	"github.com/dmitrijs2005/coachportal/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/coachportal/internal/client/services"
	"github.com/dmitrijs2005/coachportal/internal/client/teardown"
	"github.com/dmitrijs2005/coachportal/internal/common"
	"github.com/dmitrijs2005/coachportal/internal/filex"
	"github.com/dmitrijs2005/coachportal/internal/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Stores groups the backends a session is persisted in and purged from.
type Stores struct {
	Local         kv.Store
	Session       kv.Store
	AuthDB        *sql.DB
	ServiceCaches []kv.Store
}

type App struct {
	config   *config.Config
	log      logging.Logger
	out      io.Writer
	api      client.Client
	sessions services.SessionService
	stores   Stores
	cache    *cachestore.Store
	resolver *identity.Resolver
	listener realtime.Listener

	closers []io.Closer

	mu       sync.Mutex
	Mode     Mode
	provider auth.Provider
	cur      *session
	retired  []*session
}

// NewApp opens the local databases and connects the client components
// described by c. Nothing talks to the network until a session starts.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if _, err := filex.EnsureDataDir(c.DataDir); err != nil {
		return nil, err
	}

	cacheDB, err := client.InitDatabase(ctx, c.CacheDSN())
	if err != nil {
		log.Error(ctx, "error initializing cache database", "error", err)
		return nil, err
	}
	authDB, err := client.InitDatabase(ctx, c.AuthDSN())
	if err != nil {
		_ = cacheDB.Close()
		log.Error(ctx, "error initializing auth database", "error", err)
		return nil, err
	}

	stores := Stores{
		Local:   kv.NewSQLiteStore(cacheDB),
		Session: kv.NewMemoryStore(),
		AuthDB:  authDB,
	}
	closers := []io.Closer{cacheDB, authDB}

	if c.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		closers = append(closers, rdb)
		for _, tag := range c.RedisTags {
			stores.ServiceCaches = append(stores.ServiceCaches, kv.NewRedisStore(rdb, tag+":"))
		}
	}

	a := &App{
		config:  c,
		log:     log,
		out:     os.Stdout,
		stores:  stores,
		closers: closers,
	}
	a.wire(client.NewHTTPClient(c.APIBaseURL, a, c.RequestTimeout))
	return a, nil
}

// wire builds the components that hang off the API client.
func (a *App) wire(api client.Client) {
	a.api = api
	a.sessions = services.NewSessionService(api, a.stores.AuthDB, a.stores.Local)
	a.cache = cachestore.New(a.stores.Local, a.config.CacheTTL, a.log)
	a.resolver = identity.NewResolver(api, a.log)
	if a.config.RealtimeURL != "" {
		a.listener = realtime.NewWSListener(a.config.RealtimeURL, func(ctx context.Context) (string, error) {
			return a.Token(ctx, false)
		}, a.log)
	}
}

func (a *App) protocol() *teardown.Protocol {
	p := &teardown.Protocol{
		Local:         a.stores.Local,
		Session:       a.stores.Session,
		ServiceCaches: a.stores.ServiceCaches,
		Identity:      a,
		Navigator:     a,
		Log:           a.log,
	}
	if a.stores.AuthDB != nil {
		p.AuthDB = metadata.NewSQLiteRepository(a.stores.AuthDB)
	}
	return p
}

// Token hands out the signed-in provider's credential to the API client
// and the realtime listener.
func (a *App) Token(ctx context.Context, force bool) (string, error) {
	a.mu.Lock()
	p := a.provider
	a.mu.Unlock()
	if p == nil {
		return "", common.ErrNoCredentials
	}
	return p.Token(ctx, force)
}

// SignOut signs the current provider out and forgets it.
func (a *App) SignOut(ctx context.Context) error {
	a.mu.Lock()
	p := a.provider
	a.provider = nil
	a.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.SignOut(ctx)
}

// Redirect ends the interactive session and sends the user back to the
// login prompt. It may run on the engine's realtime goroutine, so the
// engine is only retired here and closed later from the REPL.
func (a *App) Redirect(ctx context.Context, target string, reason teardown.Reason) error {
	a.mu.Lock()
	if a.cur != nil {
		a.retired = append(a.retired, a.cur)
		a.cur = nil
	}
	a.mu.Unlock()

	switch reason {
	case teardown.ReasonAccountDeleted:
		fmt.Fprintf(a.out, "\nYour account no longer exists. Signed out, continue at %s\n", target)
	default:
		fmt.Fprintf(a.out, "Signed out, continue at %s\n", target)
	}
	return nil
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cur != nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()
	if changed {
		a.log.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

// StartOnlineStatusWatcher pings the API every interval and flips Mode
// accordingly. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.sessions.Ping(ctx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// Close stops every engine and releases the local databases.
func (a *App) Close() error {
	a.mu.Lock()
	sessions := append(a.retired, a.cur)
	a.retired, a.cur = nil, nil
	a.mu.Unlock()

	var errs error
	for _, s := range sessions {
		if s != nil {
			errs = multierr.Append(errs, s.eng.Close())
		}
	}
	for _, c := range a.closers {
		errs = multierr.Append(errs, c.Close())
	}
	return errs
}
