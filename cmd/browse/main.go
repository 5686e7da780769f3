package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/browser"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/config"
	pkgconfig "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/config"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/database"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/httpclient"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Values from .env never override the real environment.
	if err := pkgconfig.LoadDotEnv(envFile()); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return newRootCmd(config.LoadBrowse).ExecuteContext(ctx)
}

func envFile() string {
	if p := os.Getenv("ENV_FILE"); p != "" {
		return p
	}
	return ".env"
}

// session holds what every subcommand needs, built once per invocation.
type session struct {
	cfg    *config.BrowseConfig
	log    *slog.Logger
	http   *httpclient.Client
	client *browser.Client
	store  browser.Store

	closers []func()
}

func newSession(ctx context.Context, cfg *config.BrowseConfig) (*session, error) {
	s := &session{
		cfg: cfg,
		log: logger.New("browse", cfg.LogLevel),
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.HTTPTimeout
	httpCfg.MaxRetries = cfg.HTTPMaxRetries
	s.http = httpclient.New(httpCfg)
	s.closers = append(s.closers, s.http.CloseIdleConnections)

	breaker := httpclient.NewCircuitBreakerClient(s.http, httpclient.DefaultCircuitBreakerConfig("catalog"), s.log)
	s.client = browser.NewClient(cfg.APIURL, breaker)

	switch cfg.CacheBackend {
	case config.CacheRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			s.close()
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		s.closers = append(s.closers, func() { _ = rdb.Close() })
		// Entries outlive the read TTL so other processes with a longer TTL
		// can still use them.
		s.store = browser.NewRedisStore(rdb, cfg.CachePrefix, 10*cfg.CacheTTL, nil, s.log)
	default:
		store, err := browser.NewLRUStore(cfg.CacheSize, nil)
		if err != nil {
			s.close()
			return nil, err
		}
		s.store = store
	}

	s.log.Debug("browse session ready",
		slog.String("api_url", cfg.APIURL),
		slog.String("cache_backend", cfg.CacheBackend),
	)
	return s, nil
}

func (s *session) prefetcher() *browser.Prefetcher {
	return browser.NewPrefetcher(s.client, s.store, s.cfg.CacheTTL, s.cfg.PrefetchInFlight, s.log)
}

// controller builds a controller; withHistory enables price history
// prefetching.
func (s *session) controller(withHistory bool) *browser.Controller {
	var p *browser.Prefetcher
	if withHistory {
		p = s.prefetcher()
	}
	return browser.NewController(s.client, s.store, p, browser.Options{
		PageSize:        s.cfg.PageSize,
		CacheTTL:        s.cfg.CacheTTL,
		FetchDebounce:   s.cfg.FetchDebounce,
		SuggestDebounce: s.cfg.SuggestDebounce,
		SettleDelay:     s.cfg.SettleDelay,
	}, s.log)
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// newRootCmd builds the command tree. load supplies the configuration so
// tests can bypass the environment.
func newRootCmd(load func() (*config.BrowseConfig, error)) *cobra.Command {
	var sess *session

	root := &cobra.Command{
		Use:   "browse",
		Short: "Browse the Bakugan price catalog",
		Long: `browse queries the catalog API the same way the dashboard does: filters
and pagination map to one cached search request, names can be suggested from a
partial query, and price histories are loaded per item.

Responses are cached for BROWSE_CACHE_TTL, in process or in Redis. With the
Redis backend, "browse watch" keeps the shared cache consistent by consuming
catalog change events from Kafka.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sess, err = newSession(cmd.Context(), cfg)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if sess != nil {
				sess.close()
			}
		},
	}

	get := func() *session { return sess }
	root.AddCommand(
		newSearchCmd(get),
		newSuggestCmd(get),
		newHistoryCmd(get),
		newWatchCmd(get),
	)
	return root
}
