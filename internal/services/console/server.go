package console

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/paydeck/internal/platform/config"
	"github.com/louisbranch/paydeck/internal/platform/timeouts"
	"github.com/louisbranch/paydeck/internal/services/console/audit"
	"github.com/louisbranch/paydeck/internal/services/console/authflow"
	"github.com/louisbranch/paydeck/internal/services/console/guard"
	"github.com/louisbranch/paydeck/internal/services/console/proxy"
	"github.com/louisbranch/paydeck/internal/services/console/routepath"
	"github.com/louisbranch/paydeck/internal/services/console/session"
	consolesqlite "github.com/louisbranch/paydeck/internal/services/console/storage/sqlite"
	"github.com/louisbranch/paydeck/internal/services/console/upstream"
)

const (
	defaultAddr          = ":8087"
	defaultDBFile        = "console.db"
	defaultSweepInterval = 5 * time.Minute
)

// consoleServerEnv captures startup defaults for the console process.
type consoleServerEnv struct {
	DBPath        string        `env:"PAYDECK_CONSOLE_DB_PATH"`
	SweepInterval time.Duration `env:"PAYDECK_CONSOLE_SWEEP_INTERVAL"`
}

func loadConsoleServerEnv() consoleServerEnv {
	var cfg consoleServerEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", defaultDBFile)
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	return cfg
}

// Config defines the inputs for the console process.
//
// The console is a backend-for-frontend over the payment platform API: it
// signs operators in upstream, keeps their bearer tokens server-side, and
// exposes only a signed session cookie to the browser.
type Config struct {
	Addr            string
	UpstreamURL     string
	UpstreamTimeout time.Duration
	CookieSecret    string
	DBPath          string
	SweepInterval   time.Duration
}

// Server hosts the console HTTP surface and owns the session registry and
// the local audit store.
type Server struct {
	httpAddr      string
	httpServer    *http.Server
	sessions      *session.Store
	auditStore    *consolesqlite.Store
	sweepInterval time.Duration
}

// NewServer wires the console from configuration. The cookie secret is
// validated here so a misconfigured process refuses to start instead of
// issuing forgeable cookies.
func NewServer(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.UpstreamURL) == "" {
		return nil, errors.New("upstream URL is required")
	}

	codec, err := session.NewCodec([]byte(cfg.CookieSecret), nil)
	if err != nil {
		return nil, fmt.Errorf("build cookie codec: %w", err)
	}

	client, err := upstream.NewClient(upstream.Config{
		BaseURL: cfg.UpstreamURL,
		Timeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build upstream client: %w", err)
	}

	serverEnv := loadConsoleServerEnv()
	dbPath := strings.TrimSpace(cfg.DBPath)
	if dbPath == "" {
		dbPath = serverEnv.DBPath
	}
	auditStore, err := openConsoleStore(dbPath)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(session.Config{})
	recorder := audit.NewRecorder(audit.Config{Store: auditStore})

	flow, err := authflow.NewFlow(authflow.Config{
		Store:    sessions,
		Upstream: client,
		Auditor:  recorder,
	})
	if err != nil {
		closeStore(auditStore)
		return nil, fmt.Errorf("build auth flow: %w", err)
	}

	dispatcher, err := proxy.NewDispatcher(proxy.Config{
		Sessions: sessions,
		Upstream: client,
		Auditor:  recorder,
	})
	if err != nil {
		closeStore(auditStore)
		return nil, fmt.Errorf("build proxy dispatcher: %w", err)
	}

	routeGuard, err := guard.New(guard.Config{
		Sessions:  sessions,
		Upstream:  client,
		Cookies:   codec,
		LoginPath: routepath.Login,
	})
	if err != nil {
		closeStore(auditStore)
		return nil, fmt.Errorf("build route guard: %w", err)
	}

	handler, err := NewHandler(HandlerConfig{
		Flow:     flow,
		Guard:    routeGuard,
		Dispatch: dispatcher,
		Codec:    codec,
		Audit:    auditStore,
	})
	if err != nil {
		closeStore(auditStore)
		return nil, fmt.Errorf("build handler: %w", err)
	}

	httpAddr := strings.TrimSpace(cfg.Addr)
	if httpAddr == "" {
		httpAddr = defaultAddr
	}
	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = serverEnv.SweepInterval
	}

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	return &Server{
		httpAddr:      httpAddr,
		httpServer:    httpServer,
		sessions:      sessions,
		auditStore:    auditStore,
		sweepInterval: sweepInterval,
	}, nil
}

// ListenAndServe runs the HTTP server until the context ends. The session
// sweep ticker runs for exactly as long as the server does.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("console server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepLoop(sweepCtx)

	serveErr := make(chan error, 1)
	log.Printf("console listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.sessions.SweepExpired(); removed > 0 {
				log.Printf("console swept %d expired sessions", removed)
			}
		}
	}
}

// Close releases the resources held by the server.
func (s *Server) Close() {
	if s == nil {
		return
	}
	closeStore(s.auditStore)
}

func openConsoleStore(path string) (*consolesqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := consolesqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open console sqlite store: %w", err)
	}
	return store, nil
}

func closeStore(store *consolesqlite.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Printf("close console store: %v", err)
	}
}
