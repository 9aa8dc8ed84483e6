// Command fairing drives interstage fairing modules on a simulated vessel
// from a command script and prints every result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/sstutools/fairing/internal/cache"
	"github.com/sstutools/fairing/internal/config"
	"github.com/sstutools/fairing/internal/dispatcher"
	"github.com/sstutools/fairing/internal/handlers"
	"github.com/sstutools/fairing/internal/influx"
	"github.com/sstutools/fairing/internal/logging"
	"github.com/sstutools/fairing/internal/monitor"
	intOtel "github.com/sstutools/fairing/internal/otel"
	"github.com/sstutools/fairing/internal/queue"
	"github.com/sstutools/fairing/internal/sim"
	"github.com/sstutools/fairing/internal/storage"
	"github.com/sstutools/fairing/internal/stream"
	"github.com/sstutools/fairing/internal/worker"
	"github.com/sstutools/fairing/pkg/core"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

// AppName prefixes log files and is the default OTel service name.
const AppName = "fairing"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, stdin io.Reader, stdout io.Writer) int {
	sessionStart := time.Now()

	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	scriptPath := fs.StringP("script", "f", "", "read commands from a file, - for stdin")
	fs.String("craft", "", "craft name part records are saved under")
	fs.String("log-level", "", "debug, info, warn or error")
	showVersion := fs.Bool("version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintf(stdout, "%s %s (%s)\n", AppName, Version, BuildDate)
		return 0
	}

	// Early logging until the config is read
	slogManager := logging.NewSlogManager()
	slogManager.Setup(os.Stderr, "info", nil)
	logger := slogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config", "dir", *configDir)
	}
	_ = viper.BindPFlag("craft", fs.Lookup("craft"))
	_ = viper.BindPFlag("logLevel", fs.Lookup("log-level"))
	level := viper.GetString("logLevel")

	var logOut io.Writer = os.Stderr
	logFile, err := logging.OpenLogFile(viper.GetString("logsDir"), AppName, sessionStart)
	if err != nil {
		logger.Error("Failed to create/open log file!", "error", err)
	} else {
		logOut = logFile
		defer logFile.Close()
	}

	// OTel provider writes log records and metric snapshots next to the text log
	var otelProvider *intOtel.Provider
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		otelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logOut,
			MetricWriter: logOut,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			logger.Error("Failed to initialize OTel provider", "error", err)
			otelProvider = nil
		}
	}

	var extra []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address)
		if err != nil {
			logger.Error("Failed to connect to Graylog", "error", err, "address", gl.Address)
		} else {
			slogManager.AddCloser(w)
			extra = append(extra, logging.NewGraylogHandler(w, level))
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider != nil {
		otelLogProvider = otelProvider.LoggerProvider()
	}
	slogManager.Setup(logOut, level, otelLogProvider, extra...)
	logger = slogManager.Logger()
	logger.Info("Starting", "version", Version, "buildDate", BuildDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc, err := newServices(ctx, logOut, level, slogManager)
	if err != nil {
		logger.Error("Failed to start", "error", err)
		return 1
	}

	steps, err := loadSteps(*scriptPath, fs.Args(), stdin)
	if err != nil {
		logger.Error("Failed to read script", "error", err)
		svc.shutdown(otelProvider)
		return 2
	}

	enc := json.NewEncoder(stdout)
	failed := Run(svc.dispatcher, steps, func(r Result) {
		if err := enc.Encode(r); err != nil {
			logger.Error("Failed to write result", "error", err, "line", r.Line)
		}
	})
	logger.Info("Script finished", "steps", len(steps), "failed", failed)

	svc.shutdown(otelProvider)
	if failed > 0 {
		return 1
	}
	return 0
}

// loadSteps reads the script file when given, otherwise treats every
// positional argument as one line.
func loadSteps(path string, args []string, stdin io.Reader) ([]Step, error) {
	switch path {
	case "":
		return ParseScript(strings.NewReader(strings.Join(args, "\n")))
	case "-":
		return ParseScript(stdin)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ParseScript(f)
	}
}

type services struct {
	log        *slog.Logger
	logManager *logging.SlogManager
	dispatcher *dispatcher.Dispatcher
	backend    storage.Backend
	influx     *influx.Manager
	stream     *stream.Sink
	worker     *worker.Manager
	monitor    *monitor.Service
	cancel     context.CancelFunc
	workerDone chan struct{}
}

func newServices(ctx context.Context, logOut io.Writer, level string, lm *logging.SlogManager) (*services, error) {
	s := &services{log: lm.Logger(), logManager: lm}

	d, err := dispatcher.New(logging.NewDispatcherLogger(logging.NewZerolog(logOut, level, "dispatcher")))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	s.dispatcher = d

	backend, err := createStorageBackend(config.GetStorageConfig(), s.log, logging.NewZerolog(logOut, level, "database"))
	if err != nil {
		s.log.Error("Failed to create storage backend, running without one", "error", err)
	} else if err := backend.Init(); err != nil {
		s.log.Error("Failed to initialize storage backend, running without one", "error", err)
	} else {
		s.backend = backend
	}

	craft := viper.GetString("craft")

	var sinks worker.Sinks
	var pointSink monitor.PointWriter
	im := influx.NewManager(logging.NewZerolog(logOut, level, "influx"), config.GetInfluxConfig())
	switch err := im.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
	case err != nil:
		s.log.Error("Failed to set up telemetry sink", "error", err)
	default:
		s.influx = im
		pointSink = im
		sinks = append(sinks, im)
	}

	streamCfg := config.GetStreamConfig()
	viewer := stream.New(streamCfg, craft, s.log)
	switch err := viewer.Connect(ctx); {
	case errors.Is(err, stream.ErrDisabled):
	case err != nil:
		s.log.Error("Failed to connect live viewer", "error", err, "url", streamCfg.URL)
	default:
		s.stream = viewer
		sinks = append(sinks, viewer)
		s.log.Info("Streaming telemetry to live viewer", "url", streamCfg.URL)
	}

	var sink worker.SampleSink
	switch len(sinks) {
	case 0:
	case 1:
		sink = sinks[0]
	default:
		sink = sinks
	}
	samples := queue.New[core.StateSample]()
	modules := cache.NewModuleCache()

	s.worker = worker.NewManager(worker.Dependencies{
		Samples: samples,
		Sink:    sink,
		Logger:  s.log,
	}, s.backend)
	s.worker.RegisterHandlers(d)

	telemetry := config.GetTelemetryConfig()
	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.workerDone = make(chan struct{})
	go func() {
		defer close(s.workerDone)
		s.worker.Run(workerCtx, telemetry.FlushInterval)
	}()

	s.monitor = monitor.NewService(monitor.Dependencies{
		LogManager:    lm,
		WorkerManager: s.worker,
		Modules:       modules,
		Sink:          pointSink,
		StatusPath:    telemetry.StatusFile,
		Craft:         craft,
		Interval:      telemetry.StatusInterval,
	})
	if err := s.monitor.Start(); err != nil {
		s.log.Error("Failed to start status monitor", "error", err)
	}

	fairingCfg, issues := config.GetFairingConfig()
	for _, issue := range issues {
		s.log.Warn("Fairing configuration", "issue", issue)
	}

	handlerService, err := handlers.NewService(handlers.Dependencies{
		World:      sim.NewWorld(),
		Modules:    modules,
		Backend:    s.backend,
		Samples:    samples,
		LogManager: lm,
		Config:     fairingCfg,
		Craft:      craft,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create handler service: %w", err)
	}
	handlerService.RegisterHandlers(d)
	s.log.Info("Handlers registered", "commands", len(d.Commands()), "craft", craft)

	return s, nil
}

func (s *services) shutdown(otelProvider *intOtel.Provider) {
	s.dispatcher.Close()
	s.monitor.Stop()

	// Run flushes whatever is left once cancelled
	s.cancel()
	<-s.workerDone
	if _, err := s.monitor.Report(context.Background()); err != nil {
		s.log.Error("Failed to write final status", "error", err)
	}

	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.log.Error("Failed to close storage backend", "error", err)
		}
		if exp, ok := s.backend.(storage.Exporter); ok && exp.GetExportedFilePath() != "" {
			s.log.Info("Exported records", "path", exp.GetExportedFilePath())
		}
	}
	if s.influx != nil {
		if err := s.influx.Close(); err != nil {
			s.log.Error("Failed to close telemetry sink", "error", err)
		}
	}
	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			s.log.Error("Failed to close live viewer stream", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if otelProvider != nil {
		if err := otelProvider.Shutdown(ctx); err != nil {
			s.log.Error("Failed to shut down OTel provider", "error", err)
		}
	}
	if err := s.logManager.Flush(ctx); err != nil {
		s.log.Error("Failed to flush logs", "error", err)
	}
	_ = s.logManager.Close()
}
