package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/agoradev/agora/pkg/api"
	"github.com/agoradev/agora/pkg/cache"
	"github.com/agoradev/agora/pkg/config"
	"github.com/agoradev/agora/pkg/forum"
	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/pubsub"
	"github.com/agoradev/agora/pkg/realtime"
	"github.com/agoradev/agora/pkg/storage"
)

const sessionPurgeInterval = time.Hour

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the forum backend server",
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"))
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	logger := log.ForService("serve")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyDebugConfig(cfg)

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warnf("closing database: %v", err)
		}
	}()

	broker, cacheImpl, closeBackends, err := buildBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackends(); err != nil {
			logger.Warnf("closing broker and cache: %v", err)
		}
	}()

	hub := realtime.NewHub()
	services := forum.NewServices(store, cacheImpl, hub, broker, cfg.SessionTTL.Duration)

	if err := services.Auth.Bootstrap(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("bootstrapping roles and admin: %w", err)
	}

	// Bridge broker channels into the hub. A failed subscription aborts
	// startup rather than running with silent realtime gaps.
	listenerCtx, cancelListener := context.WithCancel(ctx)
	defer cancelListener()

	listener := realtime.NewListener(hub, broker)
	if err := listener.Start(listenerCtx); err != nil {
		return fmt.Errorf("starting channel listeners: %w", err)
	}
	defer listener.Stop()

	mux := http.NewServeMux()
	server := api.NewServer(services, hub)
	server.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: api.CorsMiddleware(mux),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on http://%s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	purgeTicker := time.NewTicker(sessionPurgeInterval)
	defer purgeTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	watcher := watchConfig(configPath, logger)
	if watcher != nil {
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Warnf("closing config watcher: %v", err)
			}
		}()
	}
	var watcherEvents chan fsnotify.Event
	var watcherErrors chan error
	if watcher != nil {
		watcherEvents = watcher.Events
		watcherErrors = watcher.Errors
	}

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				logger.Infof("received SIGHUP, reloading logging configuration")
				reloadDebugConfig(configPath, logger)
			case syscall.SIGINT, syscall.SIGTERM:
				fmt.Println("\nShutting down...")
				return shutdown(httpServer, cancelListener, listener, logger)
			}
		case <-ctx.Done():
			return shutdown(httpServer, cancelListener, listener, logger)
		case err := <-errCh:
			cancelListener()
			listener.Stop()
			return fmt.Errorf("http server: %w", err)
		case <-purgeTicker.C:
			services.Auth.PurgeExpiredSessions(ctx)
		case event, ok := <-watcherEvents:
			if !ok {
				watcherEvents = nil
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				// Editors often replace the file, give the write a moment.
				time.Sleep(100 * time.Millisecond)
				if event.Has(fsnotify.Rename) {
					if err := watcher.Add(configPath); err != nil {
						logger.Warnf("re-watching config file: %v", err)
					}
				}
				logger.Infof("config file changed, reloading logging configuration")
				reloadDebugConfig(configPath, logger)
			}
		case err, ok := <-watcherErrors:
			if !ok {
				watcherErrors = nil
				continue
			}
			logger.Warnf("config watcher: %v", err)
		}
	}
}

// buildBackends picks Redis or in-memory broker and cache implementations.
// Without Redis, realtime events stay within this process and the caches
// are per-process. The returned closer tears down whatever was built: the
// broker and cache share a single Redis client, so closing that client
// shuts down both.
func buildBackends(ctx context.Context, cfg *config.Config) (pubsub.Broker, cache.Cache, func() error, error) {
	if cfg.RedisURL == "" {
		broker := pubsub.NewMemoryBroker()
		return broker, cache.NewMemoryCache(), broker.Close, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return pubsub.NewRedisBroker(client), cache.NewRedisCache(client), client.Close, nil
}

func applyDebugConfig(cfg *config.Config) {
	for _, name := range cfg.Debug {
		log.EnableDebugFor(name)
	}
}

func reloadDebugConfig(configPath string, logger *log.Logger) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Warnf("reloading config: %v", err)
		return
	}
	applyDebugConfig(cfg)
}

func watchConfig(configPath string, logger *log.Logger) *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("creating config watcher: %v", err)
		return nil
	}
	if err := watcher.Add(configPath); err != nil {
		logger.Warnf("watching config file %s: %v", configPath, err)
		_ = watcher.Close()
		return nil
	}
	logger.Infof("watching config file for changes: %s", configPath)
	return watcher
}

func shutdown(httpServer *http.Server, cancelListener context.CancelFunc, listener *realtime.Listener, logger *log.Logger) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	cancelListener()
	listener.Stop()
	return nil
}
