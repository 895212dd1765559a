// cmd/tablesync/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/tablesync/internal/catalog"
	"github.com/jason-s-yu/tablesync/internal/config"
	"github.com/jason-s-yu/tablesync/internal/console"
	"github.com/jason-s-yu/tablesync/internal/game"
	"github.com/jason-s-yu/tablesync/internal/session"
	"github.com/jason-s-yu/tablesync/internal/transport"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	host := flag.Bool("host", false, "host the table (overrides TABLESYNC_ROLE)")
	join := flag.String("join", "", "join the host at this websocket URL, e.g. ws://host:8080/table/ws")
	deckFile := flag.String("deck", "", "deck list file to load at startup")
	listen := flag.String("listen", "", "listen address when hosting (overrides TABLESYNC_LISTEN_ADDR)")
	flag.Parse()

	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	switch {
	case *host:
		cfg.Role = "host"
	case *join != "":
		cfg.Role = "client"
		cfg.HostURL = *join
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *deckFile, logger); err != nil {
		logger.Fatalf("tablesync exited: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, deckFile string, logger *logrus.Logger) error {
	role, err := session.RoleFor(cfg.Role)
	if err != nil {
		return err
	}

	fetcher, closeCatalog, err := buildCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCatalog()
	loader := catalog.NewLoader(fetcher, cfg.CatalogFetchDelay, logger)

	var con *console.Console
	sess := session.New(role, session.Config{
		StartingLife: cfg.StartingLife,
		Identity:     cfg.Identity(),
		QueueSize:    cfg.SessionQueueSize,
		Transport: transport.Options{
			SendBuffer:   cfg.PeerSendBuffer,
			WriteTimeout: cfg.PeerWriteTimeout,
		},
		// search results only arrive once Run has started, after con is set
		Notifier: game.NotifierFunc(func(r game.SearchResult) { con.SearchResult(r) }),
		Logger:   logger,
	})
	con = console.New(sess, loader, os.Stdout, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return sess.Run(ctx) })

	switch role.(type) {
	case *session.Host:
		srv := &http.Server{Addr: cfg.ListenAddr, Handler: sess.Handler()}
		g.Go(func() error {
			logger.Infof("Hosting table on %s (peers connect to ws://<host>%s%s)", cfg.ListenAddr, cfg.ListenAddr, session.PathSocket)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server exited: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	case *session.Client:
		g.Go(func() error {
			err := sess.Join(ctx, cfg.HostURL)
			if ctx.Err() == nil {
				logger.Warn("host connection ended; continuing with local state")
			}
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	if deckFile != "" {
		g.Go(func() error {
			if err := con.LoadFile(ctx, deckFile); err != nil {
				logger.Warnf("deck load: %v", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		err := con.Run(ctx, os.Stdin)
		if errors.Is(err, console.ErrQuit) {
			cancel()
			return nil
		}
		return err
	})

	return g.Wait()
}

// buildCatalog assembles mirror -> Scryfall behind the cache. The returned func
// releases the database pool and Redis client.
func buildCatalog(ctx context.Context, cfg config.Config, logger *logrus.Logger) (catalog.Fetcher, func(), error) {
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	var sources []catalog.Fetcher
	if cfg.DatabaseURL != "" {
		pool, err := catalog.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, err
		}
		closers = append(closers, pool.Close)
		store := catalog.NewPostgresStore(pool, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sources = append(sources, store)
		logger.Info("Catalog mirror enabled")
	}
	sources = append(sources, catalog.NewScryfallClient(cfg.ScryfallBaseURL, cfg.CatalogHTTPTimeout, logger))

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		var err error
		rdb, err = catalog.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		logger.Infof("Catalog cache using Redis at %s", cfg.RedisAddr)
	}
	return catalog.NewCache(catalog.Chain(sources...), rdb, cfg.CachePrefix, logger), closeAll, nil
}
