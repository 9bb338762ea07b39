// Package cmd provides the CLI commands for coolify-deploy.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, err error, fields map[string]any)
}

// AppConfig holds the configuration the command passes to the coordinator
// factory.
type AppConfig struct {
	// BaseURL is the Coolify instance URL (empty when not configured).
	BaseURL string

	// Token is the Coolify API token (empty when not configured).
	Token string

	// Repository is the optional owner/repo override.
	Repository string

	// Branch is the optional branch override.
	Branch string

	// Port is the container port for artifacts and the remote application.
	Port int

	// LogLevel is the log level setting.
	LogLevel string

	// LogAppName is the application name for logging.
	LogAppName string
}

// Dependencies holds all injectable dependencies for the command.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func() (*AppConfig, error)

	// CoordinatorFactory creates the run coordinator for the given config.
	CoordinatorFactory func(cfg *AppConfig, log Logger) (domain.Coordinator, error)

	// OutcomeWriterFactory creates an OutcomeWriter.
	OutcomeWriterFactory func() domain.OutcomeWriter

	// Stdout is the writer for standard output.
	Stdout io.Writer

	// Stderr is the writer for standard error.
	Stderr io.Writer
}

// Command-line flags.
var (
	automate bool
	branch   string
	port     int
	verbose  bool
)

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for coolify-deploy.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coolify-deploy [path]",
		Short: "Configure a Django project for deployment to self-hosted Coolify",
		Long: `coolify-deploy configures the Django project at the given path (default ".")
for deployment to a self-hosted Coolify instance.

It detects whether the project manages dependencies with uv (pyproject.toml +
uv.lock) or a plain requirements.txt, adds the deployment dependencies the
mode-appropriate way, and writes the Dockerfile, .dockerignore and production
settings blocks. With --automate it then creates (or reuses) the matching
project and application on the Coolify instance and triggers a deployment.

Automated mode reads COOLIFY_URL and COOLIFY_TOKEN from the environment.
Every stage is idempotent: re-running after a failure resumes where the
previous run stopped without duplicating remote resources.

Examples:
  # Configure only; commit and deploy manually
  coolify-deploy

  # Configure and deploy through the Coolify API
  COOLIFY_URL=https://coolify.example.com COOLIFY_TOKEN=... coolify-deploy --automate

  # Deploy a specific branch of a project in another directory
  coolify-deploy /path/to/project --automate --branch staging`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, args, deps)
		},
	}

	rootCmd.Flags().BoolVarP(&automate, "automate", "a", false,
		"Create the remote application and trigger a deployment after configuring")
	rootCmd.Flags().StringVarP(&branch, "branch", "b", "",
		"Branch to deploy (default: the current branch)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0,
		"Container port exposed by the generated Dockerfile")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose/debug logging")

	return rootCmd
}

// runDeploy executes one configuration-and-deployment run with injected
// dependencies.
func runDeploy(cmd *cobra.Command, args []string, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	projectRoot := "."
	if len(args) > 0 {
		projectRoot = args[0]
	}

	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	// Set log level based on verbose flag (best-effort)
	if verbose {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			writeWarningf(stderr, "warning: could not set log level: %v\n", err)
		}
	}

	log := deps.LoggerFactory()

	log.Info(ctx, "starting coolify-deploy", map[string]any{
		"path":     projectRoot,
		"automate": automate,
		"verbose":  verbose,
	})

	cfg, err := deps.ConfigLoader()
	if err != nil {
		log.Error(ctx, "failed to load configuration", err, nil)
		return fmt.Errorf("configuration error: %w", err)
	}
	if branch != "" {
		cfg.Branch = branch
	}
	if port > 0 {
		cfg.Port = port
	}

	coordinator, err := deps.CoordinatorFactory(cfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialize coordinator", err, nil)
		return err
	}

	outcome, runErr := coordinator.Run(ctx, domain.RunInput{
		Root:     projectRoot,
		Automate: automate,
	})

	// The outcome is reported even for failed runs: it names the stage
	// reached and how to proceed.
	if outcome != nil {
		writer := deps.OutcomeWriterFactory()
		if err := writer.WriteOutcome(outcome); err != nil {
			log.Error(ctx, "failed to write outcome", err, nil)
			if runErr == nil {
				return fmt.Errorf("output error: %w", err)
			}
		}
	}

	if runErr != nil {
		return runErr
	}

	log.Info(ctx, "run complete", map[string]any{
		"stage":           string(outcome.Stage),
		"mode":            string(outcome.Mode),
		"automated":       outcome.Automated,
		"deployment_uuid": outcome.DeploymentUUID,
	})

	return nil
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// writeWarningf writes a warning message to the given writer.
// This is a best-effort operation; errors are intentionally ignored
// because there is no recovery action if stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		return
	}
}
