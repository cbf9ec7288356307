package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modlingo/modlingo/internal/repositories"
	"github.com/modlingo/modlingo/internal/services"
	"github.com/modlingo/modlingo/internal/shared"
	"github.com/modlingo/modlingo/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
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
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, tasksCommand, cacheCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the Runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// loadConfig reads the config file named by the command's --config flag,
// falling back to the Runner's current config when it cannot be read.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	configPath := cmd.String("config")
	if configPath == "" {
		return r.config
	}
	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		return r.config
	}
	return config
}

// openOrchestrator wires the database, repositories, worker and storage
// clients into an Orchestrator. The caller owns closing the returned db.
func (r *Runner) openOrchestrator(config *shared.Config) (*tasks.Orchestrator, *sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	workerClient := services.NewWorkerClient(config.Worker.BaseURL, r.httpClient)
	storageClient := services.NewStorageClient(config.Storage, r.httpClient)

	orch := tasks.NewOrchestrator(tasks.OrchestratorOpts{
		TaskRepo:         repositories.NewTaskRepository(db),
		RecordRepo:       repositories.NewConfirmationRepository(db),
		CacheRepo:        repositories.NewCacheRepository(db),
		ContentRepo:      repositories.NewContentRepository(db),
		Worker:           workerClient,
		Storage:          storageClient,
		Logger:           r.logger,
		WorkDir:          config.Files.WorkDir,
		CallbackURL:      config.Server.CallbackBaseURL + "/api/callback",
		FailureThreshold: config.Sweep.FailureThreshold,
		SweepInterval:    time.Duration(config.Sweep.IntervalSeconds) * time.Second,
		PollRate:         config.Sweep.PollRate,
		Retention:        time.Duration(config.Files.RetentionHours) * time.Hour,
	})

	return orch, db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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
