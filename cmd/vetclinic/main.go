package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/nlazzarini/vetclinic/internal/authz"
	"github.com/nlazzarini/vetclinic/internal/booking"
	"github.com/nlazzarini/vetclinic/internal/handlers"
	"github.com/nlazzarini/vetclinic/internal/outbox"
	"github.com/nlazzarini/vetclinic/internal/reminders"
	"github.com/nlazzarini/vetclinic/internal/storage"
	"github.com/nlazzarini/vetclinic/libs/config"
	"github.com/nlazzarini/vetclinic/libs/db"
	"github.com/nlazzarini/vetclinic/libs/httpx"
	"github.com/nlazzarini/vetclinic/libs/kafkax"
	otelx "github.com/nlazzarini/vetclinic/libs/otel"
	"github.com/nlazzarini/vetclinic/libs/runtime"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "vetclinic")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	tzName := config.String("CLINIC_TIMEZONE", "America/Argentina/Buenos_Aires")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		logger.Error("invalid clinic timezone, falling back to UTC", "tz", tzName, "err", err)
		loc = time.UTC
	}

	appts := storage.NewAppointmentRepository(pool)
	patients := storage.NewPatientRepository(pool)
	owners := storage.NewOwnerRepository(pool)
	vets := storage.NewVeterinarianRepository(pool)
	staff := storage.NewStaffRepository(pool)
	records := storage.NewRecordRepository(pool)
	users := storage.NewUserRepository(pool)
	stats := storage.NewStatsRepository(pool, loc)
	outboxRepo := outbox.NewRepository(pool)

	bookingSvc := booking.NewService(vets, appts, loc)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	reminderWorker := reminders.NewWorker(pool, appts, outboxRepo, logger, reminders.WorkerConfig{
		Interval:  time.Duration(config.Int("REMINDER_POLL_SECONDS", 30)) * time.Second,
		Horizon:   time.Duration(config.Int("REMINDER_HORIZON_HOURS", 24)) * time.Hour,
		BatchSize: config.Int("REMINDER_BATCH_SIZE", 50),
	})
	go reminderWorker.Run(ctx)

	jwtSecret := config.String("JWT_SECRET", "dev-secret")
	authMW := authz.Middleware(jwtSecret)
	receptionistOnly := authz.RequireRole(authz.RoleReceptionist)
	anyStaff := authz.RequireRole(authz.RoleReceptionist, authz.RoleVeterinarian)

	slotsHandler := handlers.NewSlotsHandler(bookingSvc, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(bookingSvc)
	appointmentHandler := handlers.NewAppointmentHandler(appts, records, outboxRepo, bookingSvc, logger)
	patientHandler := handlers.NewPatientHandler(patients, records)
	ownerHandler := handlers.NewOwnerHandler(owners)
	directoryHandler := handlers.NewDirectoryHandler(vets, staff)
	statsHandler := handlers.NewStatsHandler(stats)
	authHandler := handlers.NewAuthHandler(users, vets, jwtSecret)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)},
	)

	protected := func(h http.HandlerFunc, mw ...httpx.Middleware) http.Handler {
		return httpx.Chain(h, append([]httpx.Middleware{authMW}, mw...)...)
	}

	// Public surface: the booking widget's slot feed and login.
	mux.HandleFunc("/api/slots", slotsHandler.Get)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)

	mux.Handle("/api/v1/appointments/availability", protected(availabilityHandler.Get, anyStaff))
	mux.Handle("/api/v1/appointments", protected(appointmentHandler.Route, anyStaff))
	mux.Handle("/api/v1/appointments/reschedule", protected(appointmentHandler.Reschedule, anyStaff))
	mux.Handle("/api/v1/appointments/cancel", protected(appointmentHandler.Cancel, anyStaff))
	mux.Handle("/api/v1/appointments/complete", protected(appointmentHandler.Complete, anyStaff))

	mux.Handle("/api/v1/patients", protected(patientHandler.Route, anyStaff))
	mux.Handle("/api/v1/patients/records", protected(patientHandler.Records, anyStaff))
	mux.Handle("/api/v1/owners", protected(ownerHandler.Route, anyStaff))
	mux.Handle("/api/v1/veterinarians", protected(directoryHandler.RouteVeterinarians, anyStaff))
	mux.Handle("/api/v1/staff", protected(directoryHandler.RouteStaff, receptionistOnly))
	mux.Handle("/api/v1/stats", protected(statsHandler.Overview, receptionistOnly))

	bodyLimit := int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))
	requestTimeout := time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)

	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id")),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           time.Duration(config.Int("CORS_MAX_AGE_SECONDS", 600)) * time.Second,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, service)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
