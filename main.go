// Package main is the entry point for the coolify-deploy CLI application.
// coolify-deploy configures a Django project for deployment to a self-hosted
// Coolify instance and, with --automate, drives the deployment end-to-end
// through the Coolify HTTP API.
package main

import (
	"os"

	"github.com/MyCarrier-DevOps/coolify-deploy/cmd"
	"github.com/MyCarrier-DevOps/coolify-deploy/internal/adapters/artifacts"
	"github.com/MyCarrier-DevOps/coolify-deploy/internal/adapters/coolify"
	gitadapter "github.com/MyCarrier-DevOps/coolify-deploy/internal/adapters/git"
	logadapter "github.com/MyCarrier-DevOps/coolify-deploy/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/coolify-deploy/internal/adapters/output"
	"github.com/MyCarrier-DevOps/coolify-deploy/internal/adapters/pydeps"
	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
	"github.com/MyCarrier-DevOps/coolify-deploy/internal/infrastructure/config"
	"github.com/MyCarrier-DevOps/coolify-deploy/internal/usecases"
)

func main() {
	// Create a single shared logger instance for the application. The level
	// comes from LOG_LEVEL, which the command may raise for --verbose.
	zapLog := logadapter.NewProduction(os.Getenv(config.EnvLogLevel), config.DefaultLogAppName)
	adapter := logadapter.NewZapAdapter(zapLog)

	cmd.SetDefaultDependencies(newDependencies(adapter))
	cmd.Execute()
}

// newDependencies wires the production dependency graph around the shared
// logger.
func newDependencies(adapter *logadapter.ZapAdapter) *cmd.Dependencies {
	return &cmd.Dependencies{
		LoggerFactory: func() cmd.Logger {
			return adapter
		},

		ConfigLoader: func() (*cmd.AppConfig, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return &cmd.AppConfig{
				BaseURL:    cfg.BaseURL,
				Token:      cfg.Token,
				Repository: cfg.Repository,
				Branch:     cfg.Branch,
				Port:       cfg.Port,
				LogLevel:   cfg.LogLevel,
				LogAppName: cfg.LogAppName,
			}, nil
		},

		CoordinatorFactory: func(cfg *cmd.AppConfig, _ cmd.Logger) (domain.Coordinator, error) {
			inspector := pydeps.NewDetector(adapter)
			synchronizer := pydeps.NewSynchronizer(pydeps.NewExecRunner(), adapter)
			generator := artifacts.NewGenerator(adapter)

			openGit := func(path string) (domain.LocalGitRepository, error) {
				return gitadapter.NewGoGitRepository(path, adapter)
			}

			var resolver domain.TopologyResolver
			var trigger domain.DeployTrigger
			if cfg.BaseURL != "" && cfg.Token != "" {
				api := coolify.NewClient(cfg.BaseURL, cfg.Token, adapter)
				resolver = usecases.NewTopologyResolver(api, adapter)
				trigger = usecases.NewTrigger(api, adapter)
			}

			settings := usecases.Settings{
				PlatformConfigured: cfg.BaseURL != "" && cfg.Token != "",
				DashboardBase:      cfg.BaseURL,
				RepositoryOverride: cfg.Repository,
				BranchOverride:     cfg.Branch,
				Port:               cfg.Port,
			}

			return usecases.NewCoordinator(
				inspector,
				synchronizer,
				generator,
				openGit,
				resolver,
				trigger,
				settings,
				adapter,
			), nil
		},

		OutcomeWriterFactory: func() domain.OutcomeWriter {
			return output.NewWriter()
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}
