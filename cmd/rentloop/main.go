package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentloop/internal/app/commands"
	"rentloop/internal/app/dto"
	availabilityapp "rentloop/internal/app/handlers/availability"
	bookingapp "rentloop/internal/app/handlers/booking"
	payoutsapp "rentloop/internal/app/handlers/payouts"
	"rentloop/internal/app/middleware"
	"rentloop/internal/app/outbox"
	"rentloop/internal/app/policies"
	"rentloop/internal/app/queries"
	"rentloop/internal/app/schedule"
	"rentloop/internal/app/uow"
	"rentloop/internal/infra/broker/kafka"
	"rentloop/internal/infra/config"
	dbmongo "rentloop/internal/infra/db/mongo"
	ginserver "rentloop/internal/infra/http/gin"
	"rentloop/internal/infra/obs"
	infraoutbox "rentloop/internal/infra/outbox"
	"rentloop/internal/infra/payments"
	"rentloop/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration load failed", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	for _, worker := range app.workers {
		w := worker
		go func() {
			if err := w.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker stopped", "name", w.name, "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	app.close(logger)
	logger.Info("HTTP server stopped")
}

type backgroundWorker struct {
	name string
	run  func(context.Context) error
}

type application struct {
	handlers ginserver.Handlers
	workers  []backgroundWorker
	ready    func() error
	close    func(*slog.Logger)
}

func buildApplication(cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		uowFactory  uow.UoWFactory
		outboxStore outbox.Outbox
		idStore     middleware.IdempotencyStore
		workers     []backgroundWorker
		ready       = func() error { return nil }
		closeFn     = func(*slog.Logger) {}
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := dbmongo.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("mongo connect: %w", err)
		}
		store := infraoutbox.NewStore(client.DB)
		uowFactory = dbmongo.Factory{
			DB:           client.DB,
			ListingsRepo: dbmongo.NewListingRepository(client.DB),
			BookingRepo:  dbmongo.NewBookingRepository(client.DB),
			Availability: dbmongo.NewAvailabilityIndex(client.DB),
			PayoutsRepo:  dbmongo.NewPayoutRepository(client.DB),
		}
		outboxStore = store
		idStore = dbmongo.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return application{}, fmt.Errorf("kafka connect: %w", err)
			}
			relay := &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
			workers = append(workers, backgroundWorker{name: "outbox-relay", run: relay.Run})
			closeFn = func(log *slog.Logger) {
				if err := producer.Close(); err != nil {
					log.Error("kafka producer close failed", "error", err)
				}
			}
		}
	default:
		uowFactory = memory.Factory{
			ListingsRepo: memory.NewListingRepository(),
			BookingRepo:  memory.NewBookingRepository(),
			Availability: memory.NewAvailabilityIndex(),
			PayoutsRepo:  memory.NewPayoutRepository(),
		}
		outboxStore = memory.NewOutbox()
		idStore = memory.NewIdempotencyStore()
	}

	var paymentsPort policies.PaymentsPort = payments.NewSimulator()
	encoder := outbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	registerCommandHandlers(commandBus, registerDeps{
		cfg:      cfg,
		uow:      uowFactory,
		outbox:   outboxStore,
		encoder:  encoder,
		payments: paymentsPort,
		logger:   logger,
	})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxStore),
	)

	queryBus := queries.NewInMemoryBus()
	registerQueryHandlers(queryBus, uowFactory)

	sweeper := &schedule.CompletionSweeper{
		UoWFactory: uowFactory,
		Bus:        commandBusWithMiddleware,
		Interval:   cfg.SweepInterval,
		Logger:     logger,
	}
	workers = append(workers, backgroundWorker{name: "completion-sweeper", run: sweeper.Run})

	handlers := ginserver.Handlers{
		Booking: &ginserver.BookingHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBus,
		},
		Availability: &ginserver.AvailabilityHandler{
			Queries: queryBus,
		},
		Payout: &ginserver.PayoutHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBus,
			Currency: cfg.Currency,
		},
	}

	return application{handlers: handlers, workers: workers, ready: ready, close: closeFn}, nil
}

type registerDeps struct {
	cfg      config.Config
	uow      uow.UoWFactory
	outbox   outbox.Outbox
	encoder  outbox.EventEncoder
	payments policies.PaymentsPort
	logger   *slog.Logger
}

func registerCommandHandlers(bus *commands.InMemoryBus, deps registerDeps) {
	commands.RegisterHandler(bus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{
		UoWFactory:        deps.uow,
		Outbox:            deps.outbox,
		Encoder:           deps.encoder,
		CommissionPercent: deps.cfg.CommissionPercent,
		Logger:            deps.logger,
	})
	commands.RegisterHandler(bus, bookingapp.ConfirmBookingCommand{}.Key(), &bookingapp.ConfirmBookingHandler{
		UoWFactory: deps.uow,
		Outbox:     deps.outbox,
		Encoder:    deps.encoder,
		Logger:     deps.logger,
	})
	commands.RegisterHandler(bus, bookingapp.RejectBookingCommand{}.Key(), &bookingapp.RejectBookingHandler{
		UoWFactory: deps.uow,
		Outbox:     deps.outbox,
		Encoder:    deps.encoder,
		Logger:     deps.logger,
	})
	commands.RegisterHandler(bus, bookingapp.PayBookingCommand{}.Key(), &bookingapp.PayBookingHandler{
		UoWFactory:     deps.uow,
		Outbox:         deps.outbox,
		Encoder:        deps.encoder,
		Payments:       deps.payments,
		PaymentTimeout: deps.cfg.PaymentTimeout,
		Logger:         deps.logger,
	})
	commands.RegisterHandler(bus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		UoWFactory: deps.uow,
		Outbox:     deps.outbox,
		Encoder:    deps.encoder,
		Payments:   deps.payments,
		Logger:     deps.logger,
	})
	commands.RegisterHandler(bus, bookingapp.CompleteBookingCommand{}.Key(), &bookingapp.CompleteBookingHandler{
		UoWFactory: deps.uow,
		Outbox:     deps.outbox,
		Encoder:    deps.encoder,
		Logger:     deps.logger,
	})
	commands.RegisterHandler(bus, payoutsapp.CreatePayoutCommand{}.Key(), &payoutsapp.CreatePayoutHandler{
		UoWFactory: deps.uow,
		Outbox:     deps.outbox,
		Encoder:    deps.encoder,
		Logger:     deps.logger,
	})
	commands.RegisterHandler(bus, payoutsapp.MarkPayoutPaidCommand{}.Key(), &payoutsapp.MarkPayoutPaidHandler{
		UoWFactory: deps.uow,
		Outbox:     deps.outbox,
		Encoder:    deps.encoder,
		Logger:     deps.logger,
	})
}

func registerQueryHandlers(bus *queries.InMemoryBus, factory uow.UoWFactory) {
	booking := &bookingapp.QueryHandlers{UoWFactory: factory}
	availability := &availabilityapp.QueryHandlers{UoWFactory: factory}
	payouts := &payoutsapp.QueryHandlers{UoWFactory: factory}

	queries.RegisterHandler(bus, bookingapp.GetBookingQuery{}.Key(),
		queries.HandlerFunc[bookingapp.GetBookingQuery, *dto.BookingView](booking.GetBooking))
	queries.RegisterHandler(bus, bookingapp.NextStatesQuery{}.Key(),
		queries.HandlerFunc[bookingapp.NextStatesQuery, *dto.NextStatesView](booking.NextStates))
	queries.RegisterHandler(bus, bookingapp.ListRenterBookingsQuery{}.Key(),
		queries.HandlerFunc[bookingapp.ListRenterBookingsQuery, *dto.BookingCollection](booking.ListByRenter))
	queries.RegisterHandler(bus, bookingapp.ListHostBookingsQuery{}.Key(),
		queries.HandlerFunc[bookingapp.ListHostBookingsQuery, *dto.BookingCollection](booking.ListByHost))
	queries.RegisterHandler(bus, availabilityapp.GetCalendarQuery{}.Key(),
		queries.HandlerFunc[availabilityapp.GetCalendarQuery, *dto.Calendar](availability.GetCalendar))
	queries.RegisterHandler(bus, availabilityapp.GetDaySlotsQuery{}.Key(),
		queries.HandlerFunc[availabilityapp.GetDaySlotsQuery, *dto.DaySlots](availability.GetDaySlots))
	queries.RegisterHandler(bus, payoutsapp.GetEarningsQuery{}.Key(),
		queries.HandlerFunc[payoutsapp.GetEarningsQuery, *dto.EarningsView](payouts.GetEarnings))
	queries.RegisterHandler(bus, payoutsapp.ListPayoutsQuery{}.Key(),
		queries.HandlerFunc[payoutsapp.ListPayoutsQuery, *dto.PayoutCollection](payouts.ListPayouts))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
