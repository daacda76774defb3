// Command algo is the turretline agent. The game engine starts it with the
// match protocol on stdin and stdout; logs go to a file under logsDir.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/turretline/algo/internal/api"
	"github.com/turretline/algo/internal/config"
	"github.com/turretline/algo/internal/dispatcher"
	"github.com/turretline/algo/internal/engine"
	"github.com/turretline/algo/internal/handlers"
	"github.com/turretline/algo/internal/influx"
	"github.com/turretline/algo/internal/layout"
	"github.com/turretline/algo/internal/logging"
	"github.com/turretline/algo/internal/model"
	intOtel "github.com/turretline/algo/internal/otel"
	"github.com/turretline/algo/internal/parser"
	"github.com/turretline/algo/internal/storage"
	"github.com/turretline/algo/internal/strategy"

	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const appName = "turretline_algo"

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	sessionStart := time.Now()

	slogManager := logging.NewSlogManager()
	slogManager.Setup(logging.Options{Level: "info"})
	logger := slogManager.Logger()

	configDir := os.Getenv("ALGO_CONFIG_DIR")
	if configDir == "" {
		configDir = executableDir()
	}
	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err, "dir", configDir)
	}
	level := config.GetString("logLevel")

	logFile, logFilePath := openLogFile(config.GetString("logsDir"), sessionStart, logger)
	if logFile != nil {
		defer logFile.Close()
	}

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	otelProvider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    writerOrNil(logFile),
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		logger.Error("Failed to initialize OTel provider", "error", err)
		otelProvider, _ = intOtel.New(intOtel.Config{})
	}
	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider.Enabled() {
		otelLogProvider = otelProvider.LoggerProvider()
	}

	var graylog io.WriteCloser
	if config.GetBool("graylog.enabled") {
		gw, err := logging.NewGraylogWriter(config.GetString("graylog.address"), config.GetString("graylog.facility"))
		if err != nil {
			logger.Warn("Graylog sink disabled", "error", err)
		} else {
			graylog = gw
		}
	}

	// Re-setup logging with file output and optional sinks
	matchCtx := logging.NewMatchContext()
	opts := logging.Options{
		Level:    level,
		File:     writerOrNil(logFile),
		Provider: otelLogProvider,
		Match:    matchCtx,
	}
	if graylog != nil {
		opts.Graylog = graylog
	}
	slogManager.Setup(opts)
	logger = slogManager.Logger()
	intOtel.RouteErrors(logger)
	logger.Info("Starting up", "version", Version, "buildDate", BuildDate, "log", logFilePath)

	policyCfg := config.GetPolicyConfig()
	table, err := layout.Load(policyCfg.LayoutPath)
	if err != nil {
		logger.Error("Failed to load layout", "error", err, "path", policyCfg.LayoutPath)
		return 1
	}
	logger.Info("Layout loaded", "version", table.Version, "support", len(table.Support), "tier1", len(table.Tier1))

	seed := policyCfg.Seed
	if seed == 0 {
		seed = sessionStart.UnixNano()
	}
	logger.Info("Seed", "value", seed)

	reactive, err := compileReactive(policyCfg.Reactive)
	if err != nil {
		logger.Error("Invalid reactive rule", "error", err)
		return 1
	}
	if reactive != nil {
		logger.Info("Reactive rule enabled", "when", reactive.Source(), "unit", policyCfg.Reactive.Unit)
	}

	backend, err := initStorage(config.GetStorageConfig(), slogManager, logger)
	if err != nil {
		logger.Error("Storage disabled, match will not be recorded", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var recorder *influx.Recorder
	if ic := config.GetInfluxConfig(); ic.Enabled {
		recorder = influx.New(ic, ic.BackupPath, slogManager.Zerolog("influx"))
		if err := recorder.Connect(ctx); err != nil {
			logger.Warn("InfluxDB metrics disabled", "error", err)
			recorder = nil
		}
	}

	var uploader *api.Client
	if ac := config.GetAPIConfig(); ac.ServerURL != "" {
		uploader = api.New(ac.ServerURL, ac.APIKey)
		hctx, hcancel := context.WithTimeout(ctx, 5*time.Second)
		if err := uploader.Healthcheck(hctx); err != nil {
			logger.Warn("Replay server not reachable, uploads may fail", "error", err, "url", ac.ServerURL)
		}
		hcancel()
	}

	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(logger))
	if err != nil {
		logger.Error("Failed to create dispatcher", "error", err)
		return 1
	}

	p := parser.NewParser(logger)
	conn := engine.NewConn(os.Stdin, os.Stdout, logger)

	var fatalErr error
	deps := handlers.Dependencies{
		Logger:    logger,
		Parser:    p,
		Layout:    table,
		Submitter: conn,
		Reactive:  reactive,
		Match:     matchCtx,
		Seed:      seed,
		Fatal: func(err error) {
			fatalErr = err
			cancel()
		},
	}
	// Interface fields stay nil when the optional component is off.
	if backend != nil {
		deps.Backend = backend
	}
	if recorder != nil {
		deps.Recorder = recorder
	}
	if uploader != nil {
		deps.Uploader = uploader
	}
	handlers.New(deps).Register(eventDispatcher)

	loopErr := conn.ReadLoop(ctx, p, eventDispatcher)

	shutdown(backend, recorder, otelProvider, slogManager, graylog, logger)

	switch {
	case fatalErr != nil:
		logger.Error("Cannot play this match", "error", fatalErr)
		return 1
	case loopErr != nil && !errors.Is(loopErr, context.Canceled):
		logger.Error("Engine connection failed", "error", loopErr)
		return 1
	}
	logger.Info("Shut down cleanly")
	return 0
}

func compileReactive(cfg config.ReactiveConfig) (*strategy.ReactiveRule, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	kind, err := model.ParseKind(cfg.Unit)
	if err != nil {
		return nil, err
	}
	return strategy.CompileReactive(cfg.When, kind)
}

func shutdown(backend storage.Backend, recorder *influx.Recorder, provider *intOtel.Provider, logs *logging.SlogManager, graylog io.Closer, logger *slog.Logger) {
	closeStorage(backend, logger)

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			logger.Warn("Failed to close InfluxDB recorder", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := logs.Flush(ctx); err != nil {
		logger.Warn("Failed to flush logs", "error", err)
	}
	if err := provider.Shutdown(ctx); err != nil {
		logger.Warn("Failed to shut down OTel provider", "error", err)
	}
	if graylog != nil {
		_ = graylog.Close()
	}
}

// openLogFile creates logsDir and the session log, moving an existing file
// with the same name aside.
func openLogFile(logsDir string, sessionStart time.Time, logger *slog.Logger) (*os.File, string) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		logger.Error("Failed to create logs dir, logging to stderr", "error", err, "path", logsDir)
		return nil, ""
	}
	path := logging.LogFilePath(logsDir, appName, sessionStart)
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		logger.Error("Failed to create/open log file!", "error", err, "path", path)
		return nil, ""
	}
	return f, path
}

// writerOrNil keeps a nil *os.File from becoming a non-nil io.Writer.
func writerOrNil(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	return filepath.Dir(exe)
}
