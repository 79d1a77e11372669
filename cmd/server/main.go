package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"shiftbot/internal/clock"
	"shiftbot/internal/config"
	"shiftbot/internal/handler"
	"shiftbot/internal/i18n"
	"shiftbot/internal/notify"
	"shiftbot/internal/platform"
	"shiftbot/internal/schedule"
	"shiftbot/internal/service"
	"shiftbot/internal/store"
	"shiftbot/internal/timer"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn().Str("timezone", cfg.Timezone).Msg("unknown timezone, using UTC")
		loc = time.UTC
	}
	clk := clock.In(loc)

	i18n.Init("en")

	st, err := store.New(cfg.DBPath, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	client := platform.NewClient(cfg.PlatformURL, cfg.BotToken)
	var notifier notify.Notifier = platform.NewNotifier(client, cfg.OwnerUserID, log.Logger)

	locks := service.NewUserLocks()
	shiftSvc := service.NewShiftService(st, clk, locks, cfg.BreakLength, log.Logger)
	presenceSvc := service.NewPresenceService(st, clk, locks, log.Logger)
	statsSvc := service.NewStatsService(st, clk, cfg.BreakLength)
	scheduleSvc := service.NewScheduleService(st)

	timers := timer.NewCoordinator(clk, cfg.IdleWarning, cfg.AlertCooldown, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	presenceHandler := handler.NewPresenceHandler(presenceSvc, shiftSvc, timers, notifier, cfg.IdleWarning, log.Logger)
	gateway := platform.NewGateway(cfg.PlatformURL, cfg.BotToken, presenceHandler.Handle, log.Logger)
	go gateway.Run(ctx)

	sweeper := schedule.NewSweeper(st, notifier, clk, cfg.SweepInterval, cfg.SweepGrace, log.Logger)
	go sweeper.Start(ctx)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	handler.NewCommandHandler(shiftSvc, statsSvc, scheduleSvc, timers, notifier, client, clk, log.Logger).RegisterRoutes(r)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("timezone", loc.String()).Msg("shiftbot started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}
