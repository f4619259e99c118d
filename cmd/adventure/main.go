package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/turnkeeper/internal/config"
	"github.com/jwebster45206/turnkeeper/internal/dispatch"
	"github.com/jwebster45206/turnkeeper/internal/logger"
	"github.com/jwebster45206/turnkeeper/internal/observe"
	"github.com/jwebster45206/turnkeeper/internal/services"
	"github.com/jwebster45206/turnkeeper/internal/storage"
	"github.com/jwebster45206/turnkeeper/internal/turn"
	"github.com/jwebster45206/turnkeeper/pkg/oracle"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.Setup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observe.Nop()
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		provider, err := observe.InitProvider(version)
		if err != nil {
			return fmt.Errorf("metrics provider: %w", err)
		}
		defer func() { _ = provider.Shutdown(context.Background()) }()
		if metrics, err = observe.NewMetrics(provider.MeterProvider); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", provider.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	llm, err := services.NewLLMService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = llm.Close() }()
	svc := oracle.NewInstrumented(oracle.NewLLMOracle(llm, cfg.HistoryCapacity, log), cfg.OracleTimeout, metrics, log)

	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() { _ = store.Close() }()

	console := NewConsole(os.Stdin, os.Stdout, log)
	gs, err := loadOrCreate(ctx, console, svc, store, cfg, log)
	if err != nil {
		return err
	}

	d := dispatch.New(svc, dispatch.Options{
		Policy:            cfg.MergePolicy,
		BootstrapAttempts: cfg.BootstrapAttempts,
		SliceAttempts:     cfg.SliceAttempts,
	}, log)
	ctrl := turn.NewController(gs, svc, d, store, console, metrics, turn.Options{
		Policy:            cfg.MergePolicy,
		NarrativeAttempts: cfg.NarrativeAttempts,
		MaxTurnRestarts:   cfg.MaxTurnRestarts,
		SummarizeHistory:  cfg.SummarizeHistory,
		ShortenHistory:    cfg.ShortenHistory,
	}, log)
	console.session = ctrl.Session

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		return ctrl.Run(gctx)
	})
	if metricsServer != nil {
		g.Go(func() error {
			log.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	switch {
	case err == nil:
		console.printf("\n%s\n", titleStyle.Render("The End."))
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
		log.Info("game interrupted", "turn", ctrl.Session().TurnCount)
		return nil
	default:
		log.Error("game stopped", "error", err)
		return err
	}
}

var errSaveKept = errors.New("unreadable save kept, nothing to play")

// loadOrCreate resumes the saved session when the player wants it, or creates
// a new one and saves it before the first turn.
func loadOrCreate(ctx context.Context, c *Console, svc oracle.Service, store storage.Store, cfg *config.Config, log *slog.Logger) (*state.GameSession, error) {
	saved, err := store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrUnsupportedSchema):
		return nil, fmt.Errorf("save was written by a newer version: %w", err)
	case err != nil:
		log.Warn("could not load save", "error", err)
		if err := keepUnreadableSave(ctx, c, store); err != nil {
			return nil, err
		}
	}
	if saved != nil && !saved.IsEnded {
		ok, err := confirmLoad(ctx, c, saved)
		if err != nil {
			return nil, err
		}
		if ok {
			log.Info("session loaded", "session_id", saved.ID, "turn", saved.TurnCount)
			return saved, nil
		}
	}

	gs, err := createSession(ctx, c, svc, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Save(ctx, gs); err != nil {
		return nil, fmt.Errorf("save new session: %w", err)
	}
	log.Info("session created", "session_id", gs.ID)
	return gs, nil
}

// keepUnreadableSave moves a broken save file out of the way. Other stores
// are only overwritten when the player agrees.
func keepUnreadableSave(ctx context.Context, c *Console, store storage.Store) error {
	if fs, ok := store.(*storage.FileStore); ok {
		bad, err := fs.SetAside()
		if err != nil {
			return err
		}
		c.printf("%s %s\n", errorStyle.Render(c.tr("The save could not be read. It was moved to")), bad)
		return nil
	}
	ok, err := c.yesNo(ctx, "The save could not be read. Overwrite it with a new game? (y/n)")
	if err != nil {
		return err
	}
	if !ok {
		return errSaveKept
	}
	return nil
}
