package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/herbalhaven/booking-core/internal/api"
	"github.com/herbalhaven/booking-core/internal/app"
	"github.com/herbalhaven/booking-core/internal/config"
	"github.com/herbalhaven/booking-core/internal/domain"
	"github.com/herbalhaven/booking-core/internal/events"
	"github.com/herbalhaven/booking-core/internal/metrics"
	"github.com/herbalhaven/booking-core/internal/repository"
	"github.com/herbalhaven/booking-core/internal/service"
	"github.com/herbalhaven/booking-core/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		slotStore         domain.SlotStore
		consultationStore domain.ConsultationStore
		consultantStore   domain.ConsultantStore
	)

	switch cfg.Store {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			logger.Fatal("connect to database", zap.Error(err))
		}
		defer pool.Close()

		migrator, err := app.NewMigrator(pool, migrations.FS)
		if err != nil {
			logger.Fatal("prepare migrator", zap.Error(err))
		}
		if err := migrator.Run(ctx); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
		migrator.Close()

		slotStore = repository.NewSlotRepository(pool)
		consultationStore = repository.NewConsultationRepository(pool)
		consultantStore = repository.NewConsultantRepository(pool)

	case config.StoreMemory:
		store := repository.NewMemoryStore()
		slotStore = store
		consultationStore = store
		consultantStore = store
		logger.Warn("using in-memory store; state is lost on restart")
	}

	bus := events.NewBus()
	subscribeNotifier(bus, logger)

	availability := service.NewAvailabilityService(slotStore, consultantStore, cfg.ClaimTimeout, logger)
	booking := service.NewBookingService(slotStore, consultantStore, bus, cfg.ClaimTimeout, logger)
	consultations := service.NewConsultationService(consultationStore, bus, logger)

	sweeper := app.NewSweeper(slotStore, consultantStore, cfg.SweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	server := api.NewServer(availability, booking, consultations, cfg.JWTSecret, logger)

	go func() {
		if err := server.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", zap.Error(err))
			stop()
		}
	}()

	logger.Info("booking core started",
		zap.String("environment", cfg.Environment),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("store", cfg.Store),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown http server", zap.Error(err))
	}

	_ = os.Stdout.Sync()
}

// subscribeNotifier logs every notification event. Delivery is best effort;
// a real notifier integration would subscribe here instead.
func subscribeNotifier(bus *events.Bus, logger *zap.Logger) {
	handler := func(event *events.Event) error {
		var payload events.ConsultationEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		logger.Info("notification",
			zap.String("event", event.Type),
			zap.Int64("consultation_id", payload.ConsultationID),
			zap.Int64("slot_id", payload.SlotID),
			zap.String("status", payload.Status),
		)
		return nil
	}

	for _, eventType := range []string{events.EventBooked, events.EventCancelled, events.EventStatusChanged} {
		bus.Subscribe(eventType, handler)
	}
}
