package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/pond-seat-booking/internal/availability"
	"github.com/iliyamo/pond-seat-booking/internal/checkin"
	"github.com/iliyamo/pond-seat-booking/internal/config"
	"github.com/iliyamo/pond-seat-booking/internal/credential"
	"github.com/iliyamo/pond-seat-booking/internal/database"
	"github.com/iliyamo/pond-seat-booking/internal/handler"
	"github.com/iliyamo/pond-seat-booking/internal/ledger"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/middleware"
	"github.com/iliyamo/pond-seat-booking/internal/queue"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
	"github.com/iliyamo/pond-seat-booking/internal/rod"
	"github.com/iliyamo/pond-seat-booking/internal/router"
	"github.com/iliyamo/pond-seat-booking/internal/service"
	"github.com/iliyamo/pond-seat-booking/internal/sharing"
)

// store is what both storage drivers provide.
type store interface {
	ledger.Store
	checkin.Store
	rod.Store
	sharing.Store
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Default().Warn("CONFIG", "could not read .env: "+err.Error())
	}
	cfg := config.Load()

	log := logger.NewLogger()
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))
	if cfg.LogFile != "" {
		if err := log.WithFile(cfg.LogFile); err != nil {
			log.Fatal("STARTUP", "open log file: "+err.Error())
		}
	}
	logger.SetDefault(log)
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, health := openStore(ctx, cfg, log)

	issuer, err := credential.NewIssuer(cfg.CredentialSecret)
	if err != nil {
		log.Fatal("STARTUP", "credential issuer: "+err.Error())
	}

	events := queue.Nop
	var dispatcher *queue.Dispatcher
	if cfg.RabbitURL != "" {
		dispatcher = queue.NewDispatcher(service.NewRabbitPublisher(cfg.RabbitURL, log), log, cfg.EventBuffer, cfg.EventWorkers)
		events = dispatcher
		consumer := &queue.ActivityConsumer{URL: cfg.RabbitURL, Dir: cfg.ActivityLogDir, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("QUEUE", "activity consumer stopped: "+err.Error())
			}
		}()
	} else {
		log.Warn("QUEUE", "RABBITMQ_URL not set, domain events are discarded")
	}

	led := ledger.New(st, issuer, events, log, cfg.Location)
	validator := checkin.NewValidator(st, issuer, cfg.Location)
	validator.EarlyGrace = cfg.EarlyGraceMin
	machine := checkin.NewStateMachine(st, validator, events, log)
	rods := rod.NewWorkflow(st, issuer, validator, events, log)
	share := sharing.New(st, events, log, cfg.Location)

	rdb := config.NewRedisClient(config.LoadRedisConfig(), log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Log:       log,
		Health:    health,
		Ponds:     &handler.PondHandler{Ponds: st, Calc: availability.NewCalculator(st, cfg.Location), Log: log},
		Bookings:  &handler.BookingHandler{Ledger: led, Sharing: share, Log: log},
		Scans:     &handler.ScanHandler{Validator: validator, Machine: machine, Log: log},
		Rods:      &handler.RodHandler{Workflow: rods, Log: log},
	})

	addr := ":" + cfg.Port
	go func() {
		log.LogProcess("STARTUP", fmt.Sprintf("listening on %s (env=%s, storage=%s)", addr, cfg.Env, cfg.StorageDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("STARTUP", err.Error())
		}
	}()

	<-ctx.Done()
	log.LogProcess("SHUTDOWN", "signal received, draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("SHUTDOWN", "http: "+err.Error())
	}
	if dispatcher != nil {
		dispatcher.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.LogProcess("SHUTDOWN", "bye")
}

// openStore connects the configured storage driver.  The MySQL schema is
// created on first start; the memory driver is seeded with demo data.
func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (store, *handler.HealthHandler) {
	if cfg.StorageDriver == config.DriverMemory {
		mem := repository.NewMemoryStore()
		seedDemo(mem, time.Now().In(cfg.Location))
		log.LogDatabase("open", "memory", "seeded demo ponds")
		return mem, &handler.HealthHandler{Driver: cfg.StorageDriver}
	}
	db, err := database.Open(database.Params{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxOpen: cfg.DBMaxOpen,
	})
	if err != nil {
		log.Fatal("DATABASE", "connect: "+err.Error())
	}
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	log.LogDatabase("open", "mysql", fmt.Sprintf("%s@%s:%s/%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName))
	return repository.NewMySQLStore(db), &handler.HealthHandler{Driver: cfg.StorageDriver, Ping: db.PingContext}
}
