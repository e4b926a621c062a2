package main

import (
	"context"

	"bookline/internal/bookings/events"
	bookinghandler "bookline/internal/bookings/handler"
	bookingrepository "bookline/internal/bookings/repository"
	bookingservice "bookline/internal/bookings/service"
	bookingvalidator "bookline/internal/bookings/validator"
	directory "bookline/internal/directory/repository"
	identityrepository "bookline/internal/identity/repository"
	"bookline/internal/identity/resolver"
	notificationhandler "bookline/internal/notifications/handler"
	notificationrepository "bookline/internal/notifications/repository"
	notificationservice "bookline/internal/notifications/service"
	notificationvalidator "bookline/internal/notifications/validator"
	"bookline/internal/realtime/gate"
	"bookline/internal/realtime/presence"
	"bookline/internal/realtime/ws"
	"bookline/pkg/app"
	"bookline/pkg/config"
	"bookline/pkg/contracts"
	"bookline/pkg/kafka"
	kafkaconfig "bookline/pkg/kafka/config"
	kafkamiddleware "bookline/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.Client.GracefulShutdown(cfg.Log)

	cfg.Log.Info("Starting Bookings service")

	admission, err := gate.New(cfg.JWTSecret, cfg.TokenCacheSize, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create connection gate", "error", err)
	}

	registry := presence.NewRegistry()
	directoryRepo := directory.NewMongoDirectoryRepository(cfg)

	notifications := initNotifications(cfg, directoryRepo, registry)
	publisher := initPublisher(cfg)
	bookings := initBookings(cfg, directoryRepo, notifications, publisher)
	realtime := ws.NewServer(admission, registry, notifications, ws.OptionsFromConfig(cfg), cfg.Log)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, app.Options{
		Authenticator: admission,
		Realtime:      realtime,
		HealthChecks:  app.HealthChecksFromClient(cfg.Client),
		Handlers: []contracts.Handler{
			bookinghandler.NewAppointmentHandler(bookings, cfg.Log),
			notificationhandler.NewNotificationHandler(notifications, cfg.Log),
			realtime,
		},
	})
	serverApp.OnShutdown("realtime", realtime.Shutdown)
	serverApp.OnShutdown("events", func(context.Context) error { return publisher.Close() })
	serverApp.Run()
}

func initNotifications(cfg *config.Config, dir directory.DirectoryRepository, registry *presence.Registry) notificationservice.NotificationService {
	svc := notificationservice.NewNotificationService(
		notificationrepository.NewMongoNotificationRepository(cfg),
		dir,
		registry,
		notificationvalidator.NewNotificationValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Notification dispatcher initialized", "database", cfg.MongoDatabaseName)
	return svc
}

func initBookings(cfg *config.Config, dir directory.DirectoryRepository, notifier bookingservice.Notifier, publisher events.Publisher) bookingservice.BookingService {
	var locker bookingservice.SlotLocker
	switch cfg.LockBackend {
	case config.LockBackendMongo:
		locker = bookingservice.NewMongoLocker(bookingrepository.NewBookingLockRepository(cfg), cfg.LockTTL, cfg.Log)
	default:
		locker = bookingservice.NewKeyedMutex()
	}

	identity := resolver.New(identityrepository.NewMongoCustomerRepository(cfg), cfg.Log)

	svc := bookingservice.NewBookingService(
		bookingrepository.NewMongoAppointmentRepository(cfg),
		dir,
		identity,
		locker,
		notifier,
		publisher,
		bookingvalidator.NewAppointmentValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Booking coordinator initialized",
		"database", cfg.MongoDatabaseName,
		"lock_backend", cfg.LockBackend,
	)
	return svc
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Appointment event stream disabled")
		return events.NewNoopPublisher()
	}

	kafkaCfg, err := kafkaconfig.Load(ServiceName)
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaAppointmentsTopic, cfg.KafkaAppointmentsDLQ, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))

	return events.NewKafkaPublisher(producer, ServiceName)
}
