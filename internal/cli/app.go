package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/V4T54L/logvault/internal/adapter/archive"
	"github.com/V4T54L/logvault/internal/adapter/encoding"
	"github.com/V4T54L/logvault/internal/adapter/fsutil"
	"github.com/V4T54L/logvault/internal/adapter/metrics"
	"github.com/V4T54L/logvault/internal/adapter/pii"
	"github.com/V4T54L/logvault/internal/adapter/repository/errorlog"
	"github.com/V4T54L/logvault/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/logvault/internal/adapter/repository/redis"
	"github.com/V4T54L/logvault/internal/pkg/config"
	"github.com/V4T54L/logvault/internal/pkg/logger"
	"github.com/V4T54L/logvault/internal/usecase"
)

// app holds what every command shares: configuration, the logger, the
// error log and the metrics registry.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	sink    *errorlog.FileSink
	metrics *metrics.Registry
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	return &app{
		cfg:     cfg,
		logger:  log,
		sink:    errorlog.NewFileSink(cfg.ErrorLogPath, log),
		metrics: metrics.NewRegistry(),
	}, nil
}

func (a *app) close() {
	if err := a.sink.Close(); err != nil {
		a.logger.Warn("Failed to close error log", "path", a.sink.Path(), "error", err)
	}
}

func (a *app) sanitizeUseCase() (*usecase.SanitizeLogsUseCase, error) {
	registry, err := pii.BuildRegistry(a.cfg.DetectorsFile)
	if err != nil {
		a.sink.Record(fmt.Sprintf("Invalid detector configuration %s: %v", a.cfg.DetectorsFile, err))
		return nil, err
	}
	a.logger.Debug("Detectors loaded", "detectors", registry.Names())

	sanitizer := usecase.NewFileSanitizer(pii.NewAnonymizer(registry), a.sink, a.logger, int(a.cfg.MaxLineBytes)).
		WithMetrics(a.metrics.Sanitize)
	walker := fsutil.NewWalker(a.cfg.SanitizeRecursive)

	return usecase.NewSanitizeLogsUseCase(sanitizer, walker, a.sink, a.logger, a.cfg.RawLogDir, a.cfg.SanitizedLogDir, a.cfg.SanitizeWorkers).
		WithMetrics(a.metrics.Sanitize), nil
}

func (a *app) encoder() *encoding.Base64Encoder {
	return encoding.Select(a.cfg.BackupEncoding, a.logger)
}

// backupUseCase wires the backup pipeline. The returned func releases the
// optional catalog and run stream connections.
func (a *app) backupUseCase(ctx context.Context) (*usecase.BackupUseCase, func()) {
	uc := usecase.NewBackupUseCase(
		fsutil.NewWalker(true),
		archive.NewArchiver(a.cfg.BackupOutputDir, a.logger),
		a.encoder(),
		a.logger,
		a.cfg.SanitizedLogDir,
		a.cfg.BackupOutputDir,
	).WithMetrics(a.metrics.Backup)

	var closers []func()
	if catalog, closeFn := a.openCatalog(ctx); catalog != nil {
		uc.WithCatalog(catalog)
		closers = append(closers, closeFn)
	}
	if runs := a.openRunStream(ctx); runs != nil {
		uc.WithRecorder(runs)
		closers = append(closers, func() { _ = runs.Close() })
	}

	return uc, func() {
		for _, c := range closers {
			c()
		}
	}
}

// openCatalog connects to POSTGRES_URL. Any failure only disables the
// catalog; backups never depend on it.
func (a *app) openCatalog(ctx context.Context) (*postgres.ArtifactRepository, func()) {
	if a.cfg.PostgresURL == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", a.cfg.PostgresURL)
	if err != nil {
		a.logger.Warn("Artifact catalog disabled", "error", err)
		return nil, nil
	}
	if err := db.PingContext(ctx); err != nil {
		a.logger.Warn("Artifact catalog disabled, postgres unreachable", "error", err)
		db.Close()
		return nil, nil
	}
	repo := postgres.NewArtifactRepository(db, a.logger)
	if err := repo.EnsureSchema(ctx); err != nil {
		a.logger.Warn("Artifact catalog disabled", "error", err)
		db.Close()
		return nil, nil
	}
	a.logger.Info("Connected to artifact catalog")
	return repo, func() { db.Close() }
}

// openRunStream connects to REDIS_ADDR. Any failure only disables the stream.
func (a *app) openRunStream(ctx context.Context) *redisrepo.RunRepository {
	if a.cfg.RedisAddr == "" {
		return nil
	}
	client, err := redisrepo.NewClient(a.cfg.RedisAddr)
	if err != nil {
		a.logger.Warn("Run event stream disabled", "error", err)
		return nil
	}
	if err := client.Ping(ctx).Err(); err != nil {
		a.logger.Warn("Run event stream disabled, redis unreachable", "error", err)
		client.Close()
		return nil
	}
	a.logger.Info("Connected to run event stream", "stream", a.cfg.RunEventsStream)
	return redisrepo.NewRunRepository(client, a.logger, a.cfg.RunEventsStream)
}

// flushMetrics writes the textfile when METRICS_TEXTFILE_PATH is set.
func (a *app) flushMetrics() {
	if a.cfg.MetricsTextfilePath == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfilePath); err != nil {
		a.logger.Warn("Failed to write metrics textfile", "path", a.cfg.MetricsTextfilePath, "error", err)
	}
}
