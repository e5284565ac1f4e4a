package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/OCAP2/demo/internal/api"
	"github.com/OCAP2/demo/internal/config"
	"github.com/OCAP2/demo/internal/influx"
	"github.com/OCAP2/demo/internal/inspect"
	"github.com/OCAP2/demo/internal/logging"
	"github.com/OCAP2/demo/internal/mission"
	intOtel "github.com/OCAP2/demo/internal/otel"
	"github.com/OCAP2/demo/internal/session"
	"github.com/OCAP2/demo/internal/storage"
	"github.com/OCAP2/demo/internal/world/memworld"
	"github.com/OCAP2/demo/pkg/core"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// app holds the services shared by every subcommand.
type app struct {
	logs       *logging.SlogManager
	logger     *slog.Logger
	zlog       zerolog.Logger
	logFile    *os.File
	logPath    string
	otel       *intOtel.Provider
	missionCtx *mission.Context

	backend storage.Backend
	influx  *influx.Manager
	api     *api.Client
}

func newApp() *app {
	return &app{
		logs:       logging.NewSlogManager(),
		logger:     slog.Default(),
		zlog:       zerolog.Nop(),
		missionCtx: mission.NewContext(),
	}
}

// loadConfig reads the config file from dir. A missing file leaves the defaults.
func (a *app) loadConfig(dir string) error {
	err := config.Load(dir)
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// setupLogging opens the session log file and builds the slog and zerolog loggers.
func (a *app) setupLogging() error {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	a.logPath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	f, err := os.OpenFile(a.logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	a.logFile = f

	level, err := zerolog.ParseLevel(viper.GetString("logLevel"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	a.zlog = zerolog.New(f).Level(level).With().Timestamp().Logger()

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		a.otel, err = intOtel.New(context.Background(), intOtel.FromConfig(otelCfg, CurrentVersion, f))
		if err != nil {
			a.zlog.Error().Err(err).Msg("Failed to initialize OTel provider")
		} else {
			a.zlog.Info().Strs("exporters", a.otel.Exporters()).Msg("OTel log export enabled")
		}
	}

	var graylogErr error
	if viper.GetBool("graylog.enabled") {
		graylogErr = a.logs.EnableGraylog(viper.GetString("graylog.address"), viper.GetString("graylog.level"))
	}

	var otelLogProvider *sdklog.LoggerProvider
	if a.otel != nil {
		otelLogProvider = a.otel.LoggerProvider()
	}
	a.logs.SetContextProvider(a.missionCtx.Attrs)
	a.logs.Setup(f, viper.GetString("logLevel"), otelLogProvider)
	a.logger = a.logs.Logger()
	a.logger.Info("Logging to file", "path", a.logPath, "version", CurrentVersion, "build", BuildDate)
	if graylogErr != nil {
		a.logger.Warn("Graylog disabled", "error", graylogErr)
	}
	removed, err := logging.PruneLogs(logsDir, AppName, viper.GetInt("logsKeep"))
	if err != nil {
		a.logger.Warn("Failed to prune old logs", "error", err)
	}
	if len(removed) > 0 {
		a.logger.Debug("Pruned old logs", "count", len(removed))
	}
	return nil
}

// startSinks brings up the catalog, the metrics sink and the upload client.
func (a *app) startSinks() error {
	backend, err := initStorage(a.logger, a.zlog)
	if err != nil {
		return err
	}
	a.backend = backend

	if cfg := config.GetInfluxConfig(); cfg.Enabled {
		backup := filepath.Join(viper.GetString("logsDir"), "influx_backup.lp.gz")
		m := influx.NewManager(cfg, a.zlog.With().Str("component", "influx").Logger(), backup)
		if err := m.Connect(); err != nil {
			a.logger.Error("Failed to connect to InfluxDB", "error", err)
		} else {
			a.influx = m
		}
	}

	if viper.GetBool("api.upload") {
		a.api = api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.api.Healthcheck(ctx); err != nil {
			a.logger.Info("Web frontend is offline", "error", err)
		} else {
			a.logger.Info("Web frontend is online")
		}
	}
	return nil
}

// sessionOptions maps the demo settings onto the controller options.
func sessionOptions() session.Options {
	cfg := config.GetDemoConfig()
	return session.Options{
		Dir:                cfg.Dir,
		Fast:               cfg.Fast,
		MakeMovie:          cfg.MakeMovie,
		Looping:            cfg.Looping,
		MaxObjects:         cfg.MaxObjects,
		PlayerInfoInterval: cfg.PlayerInfoInterval,
	}
}

// newController builds the demo controller over w.
func (a *app) newController(w *memworld.World, screen *memworld.Screen) (*session.Controller, error) {
	opts := sessionOptions()
	return session.New(session.Dependencies{
		World:        w,
		Presentation: screen,
		Passthrough:  screen,
		Logger:       a.logger,
		Context:      a.missionCtx,
		OnRecorded:   a.onRecorded(opts.Dir, opts.MaxObjects),
		OnPlayed:     a.onPlayed,
	}, opts)
}

// onRecorded summarises a finished recording and stores it.
func (a *app) onRecorded(dir string, maxObjects int) func(core.DemoRecord) {
	return func(d core.DemoRecord) {
		path := filepath.Join(dir, d.Filename)
		if rep, err := inspect.File(path, newWorld(maxObjects)); err != nil {
			a.logger.Warn("Failed to summarise demo", "file", path, "error", err)
		} else {
			d.Paths = rep.Paths
		}

		if a.backend != nil {
			if err := a.backend.RecordDemo(&d); err != nil {
				a.logger.Error("Failed to store demo in catalog", "file", d.Filename, "error", err)
			}
		}
		if a.influx != nil {
			if err := a.influx.WriteRecording(d); err != nil {
				a.logger.Error("Failed to write recording metrics", "error", err)
			}
		}
		if a.api != nil {
			meta := storage.UploadMetadataFor(d, viper.GetString("api.playerTag"))
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := a.api.Upload(ctx, path, meta); err != nil {
				a.logger.Error("Failed to upload demo", "file", path, "error", err)
			} else {
				a.logger.Info("Uploaded demo", "file", path)
			}
		}
	}
}

// onPlayed stores a finished playback run.
func (a *app) onPlayed(r core.PlaybackReport) {
	if a.backend != nil {
		if err := a.backend.RecordPlayback(&r); err != nil {
			a.logger.Error("Failed to store playback in catalog", "file", r.Filename, "error", err)
		}
	}
	if a.influx != nil {
		if err := a.influx.WritePlayback(r); err != nil {
			a.logger.Error("Failed to write playback metrics", "error", err)
		}
	}
}

// Close releases every service in reverse order of creation.
func (a *app) Close() {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
		if up, ok := a.backend.(storage.Uploadable); ok && up.GetExportedFilePath() != "" {
			a.logger.Info("Catalog exported", "path", up.GetExportedFilePath())
		}
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.logger.Error("Failed to close InfluxDB client", "error", err)
		}
	}
	if a.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.logs.Flush(ctx); err != nil {
			a.logger.Warn("Failed to flush OTel data", "error", err)
		}
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	_ = a.logs.Close()
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
