package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/desertthunder/showsync/internal/repositories"
	"github.com/desertthunder/showsync/internal/services"
	"github.com/desertthunder/showsync/internal/shared"
	"github.com/desertthunder/showsync/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and the Trakt client are opened on first use so commands that need neither stay cheap.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
	migrated   bool
	stores     *stores
	trakt      *services.TraktService
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB // Optional pre-opened database; migrations are still applied
}

// stores groups the repositories backed by the runner's database.
type stores struct {
	queue    *repositories.SyncQueueRepository
	settings *repositories.SettingsRepository
	tokens   *repositories.TokenRepository
	runs     *repositories.SyncRunRepository
	tx       *tasks.QueueTx
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, queueCommand, syncCommand, settingsCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config named by --config and applies --verbose. A missing file keeps the defaults.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if path == "" {
		return ctx, nil
	}
	r.configPath = path

	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return ctx, nil
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// SetLogger replaces the runner's logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.migrated = false
	r.stores = nil
	r.trakt = nil
	return err
}

// database opens the configured SQLite file, unless one was provided, and applies pending migrations once.
func (r *Runner) database(ctx context.Context) (*sql.DB, error) {
	if r.db == nil {
		path := r.config.Database.Path
		r.logger.Debug("opening database", "path", path)

		db, err := shared.NewDatabase(path)
		if err != nil {
			return nil, shared.StoreError("open database", err)
		}
		shared.ConfigureDatabase(db, path, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		r.db = db
	}

	if !r.migrated {
		if err := shared.RunMigrationsContext(ctx, r.db); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		r.migrated = true
	}
	return r.db, nil
}

func (r *Runner) repositories(ctx context.Context) (*stores, error) {
	if r.stores != nil {
		return r.stores, nil
	}
	db, err := r.database(ctx)
	if err != nil {
		return nil, err
	}

	r.stores = &stores{
		queue:    repositories.NewSyncQueueRepository(db),
		settings: repositories.NewSettingsRepository(db, r.config.Sync),
		tokens:   repositories.NewTokenRepository(db),
		runs:     repositories.NewSyncRunRepository(db),
		tx:       tasks.NewQueueTx(db),
	}
	return r.stores, nil
}

// traktService builds the Trakt client with the configured credentials and request rate.
func (r *Runner) traktService(ctx context.Context) (*services.TraktService, error) {
	if r.trakt != nil {
		return r.trakt, nil
	}
	s, err := r.repositories(ctx)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if rps := r.config.Sync.RequestsPerSecond; rps > 0 {
		limit = rate.Limit(rps)
	}
	trakt, err := services.NewTraktService(r.config.Credentials.Trakt, r.httpClient, rate.NewLimiter(limit, 1), s.tokens)
	if err != nil {
		return nil, err
	}
	r.trakt = trakt
	return trakt, nil
}

// engine wires a [tasks.QuickSyncEngine] to SQLite and Trakt.
func (r *Runner) engine(ctx context.Context) (*tasks.QuickSyncEngine, error) {
	s, err := r.repositories(ctx)
	if err != nil {
		return nil, err
	}
	trakt, err := r.traktService(ctx)
	if err != nil {
		return nil, err
	}

	return tasks.NewQuickSyncEngine(tasks.QuickSyncDeps{
		Remote:   trakt,
		Auth:     trakt,
		Settings: s.settings,
		Queue:    s.queue,
		Tx:       s.tx,
		Runs:     s.runs,
		Logger:   r.logger,
	}, tasks.DefaultQuickSyncOpts(r.config.Sync)), nil
}

func (r *Runner) scheduler(ctx context.Context) (*tasks.Scheduler, error) {
	s, err := r.repositories(ctx)
	if err != nil {
		return nil, err
	}
	return tasks.NewScheduler(s.queue, s.tx, s.settings, s.tokens, r.logger), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
