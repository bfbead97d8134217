package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edgecam/internal/camera"
	"edgecam/internal/config"
	"edgecam/internal/handlers"
	"edgecam/internal/logger"
	"edgecam/internal/repository"
	"edgecam/internal/repository/db"
	"edgecam/internal/server"
	"edgecam/internal/service"
	"edgecam/internal/system"
	"edgecam/internal/transport"
)

// Exit codes read by the supervising process.
const (
	exitConfigChanged = 1 // restart with the new configuration file
	exitReboot        = 2 // reboot the device
)

const defaultConfigPath = "configs/config.yml"

type loopResult struct {
	outcome service.Outcome
	err     error
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	// Configuration errors are fatal at load time and never surface
	// mid-cycle.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.LogLevel)

	sqlDB, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// Reconnect exhaustion surfaces here as a tagged escalation, not an
	// exit buried in a transport callback.
	fatal := make(chan string, 1)
	escalate := func(reason string) {
		select {
		case fatal <- reason:
		default:
		}
	}

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	clock := system.RTCClock{}
	power := system.HostPower{}
	link := transport.NewClient(cfg.MQTT, cfg.Path, log, escalate)
	cam := camera.NewStillCamera(cfg.Camera)
	services := service.NewService(repos, clock, power, cam, system.SysfsVitals{}, link, cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load-then-validate the durable calibration record before the first
	// scheduling decision.
	if err := services.Calibrator.Resolve(ctx); err != nil {
		log.Fatalw("failed to resolve calibration", "err", err)
	}

	srv := runStatusServer(cfg.StatusPort, handlers.NewHandler(services.Status, log), log)

	results := make(chan loopResult, 1)
	go func() {
		outcome, err := services.Scheduler.Run(ctx)
		results <- loopResult{outcome: outcome, err: err}
	}()

	os.Exit(supervise(cancel, results, fatal, link, power, srv, log))
}

// supervise waits for the scheduler loop, a fatal escalation, or a
// termination signal, and maps each to a process exit code.
func supervise(
	cancel context.CancelFunc,
	results <-chan loopResult,
	fatal <-chan string,
	link *transport.Client,
	power system.Power,
	srv *server.Server,
	log *logger.Logger,
) int {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case reason := <-fatal:
		log.Errorw("irrecoverable condition, rebooting device", "reason", reason)
		stopStatusServer(srv, log)
		if err := power.Reboot(); err != nil {
			log.Errorw("reboot request failed", "err", err)
		}
		return exitReboot

	case r := <-results:
		stopStatusServer(srv, log)
		switch r.outcome {
		case service.OutcomeConfigChanged:
			link.Disconnect()
			log.Infow("exiting for configuration restart")
			return exitConfigChanged
		default:
			log.Errorw("scheduler stopped", "err", r.err)
			return exitReboot
		}

	case <-quit:
		log.Infow("termination signal received, shutting down")
		cancel()
		link.Disconnect()
		stopStatusServer(srv, log)
		return 0
	}
}

// runStatusServer serves the commissioning API in the background.
func runStatusServer(port string, h *handlers.Handler, log *logger.Logger) *server.Server {
	srv := &server.Server{}
	go func() {
		if err := srv.Run(port, h.InitRoutes()); err != nil {
			// ErrServerClosed is the normal shutdown path.
			log.Infow("status server stopped", "err", err)
		}
	}()
	return srv
}

func stopStatusServer(srv *server.Server, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("status server shutdown", "err", err)
	}
}
