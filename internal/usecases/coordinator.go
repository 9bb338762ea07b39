package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

// GitOpener opens the local git repository at path.
type GitOpener func(path string) (domain.LocalGitRepository, error)

// Settings carries the run-level configuration the coordinator needs. It is
// passed in explicitly; the coordinator never reads process-global state.
type Settings struct {
	// PlatformConfigured reports whether the platform URL and token are
	// both present. When false an automated run halts after artifact
	// generation with a configuration error, before any network call.
	PlatformConfigured bool

	// DashboardBase is the platform base URL used to compose the dashboard
	// location in the outcome.
	DashboardBase string

	// RepositoryOverride is the owner/repo identifier used when the local
	// project has no usable origin remote.
	RepositoryOverride string

	// BranchOverride replaces the locally detected branch when set.
	BranchOverride string

	// Port is the container port for generated artifacts and the remote
	// application.
	Port int
}

// Coordinator implements domain.Coordinator: the sequential state machine
// detecting -> synchronizing -> generating -> (resolving -> triggering) -> done.
// There is no persisted checkpoint; a failed run is resumed by re-invocation,
// relying on every stage's own detection-before-mutation idempotence.
type Coordinator struct {
	inspector domain.ProjectInspector
	sync      domain.ManifestSynchronizer
	generator domain.ArtifactGenerator
	openGit   GitOpener
	resolver  domain.TopologyResolver
	trigger   domain.DeployTrigger
	settings  Settings
	logger    Logger
}

// NewCoordinator creates a Coordinator with the given stage implementations.
// resolver and trigger may be nil when the settings rule out automated runs.
func NewCoordinator(
	inspector domain.ProjectInspector,
	sync domain.ManifestSynchronizer,
	generator domain.ArtifactGenerator,
	openGit GitOpener,
	resolver domain.TopologyResolver,
	trigger domain.DeployTrigger,
	settings Settings,
	log Logger,
) *Coordinator {
	return &Coordinator{
		inspector: inspector,
		sync:      sync,
		generator: generator,
		openGit:   openGit,
		resolver:  resolver,
		trigger:   trigger,
		settings:  settings,
		logger:    log,
	}
}

// Run executes one configuration-and-deployment run. The returned RunOutcome
// is non-nil even when err is non-nil: it names the stage reached and a
// concrete remediation instruction.
func (c *Coordinator) Run(ctx context.Context, input domain.RunInput) (*domain.RunOutcome, error) {
	outcome := &domain.RunOutcome{
		Stage:     domain.StageDetecting,
		Automated: input.Automate,
	}

	project, err := c.inspector.Inspect(ctx, input.Root)
	if err != nil {
		return c.fail(ctx, outcome, err)
	}
	outcome.Mode = project.Mode

	c.logger.Info(ctx, "detected project", map[string]any{
		"root": project.Root,
		"mode": string(project.Mode),
		"app":  project.AppName,
	})

	outcome.Stage = domain.StageSynchronizing
	if err := c.sync.Sync(ctx, project, domain.DeploymentDependencies); err != nil {
		return c.fail(ctx, outcome, err)
	}

	outcome.Stage = domain.StageGenerating
	if err := c.generator.Generate(ctx, project, c.settings.Port); err != nil {
		return c.fail(ctx, outcome, err)
	}

	if !input.Automate {
		outcome.Stage = domain.StageDone
		outcome.Success = true
		outcome.NextSteps = manualNextSteps
		return outcome, nil
	}

	// Required configuration is checked before any network call; its
	// absence is a fatal error rather than a prompt.
	if !c.settings.PlatformConfigured {
		return c.fail(ctx, outcome, domain.ErrMissingConfiguration)
	}

	outcome.Stage = domain.StageResolving
	gitCtx, err := c.gitContext(ctx, input.Root)
	if err != nil {
		return c.fail(ctx, outcome, err)
	}

	app, err := c.resolver.Resolve(ctx, gitCtx, project, c.settings.Port)
	if err != nil {
		return c.fail(ctx, outcome, err)
	}
	outcome.DashboardURL = c.settings.DashboardBase + "/project/" + app.UUID

	outcome.Stage = domain.StageTriggering
	deployment, err := c.trigger.Trigger(ctx, app)
	if err != nil {
		return c.fail(ctx, outcome, err)
	}
	outcome.DeploymentUUID = deployment.UUID

	outcome.Stage = domain.StageDone
	outcome.Success = true
	outcome.NextSteps = fmt.Sprintf(automatedNextSteps, outcome.DashboardURL)
	return outcome, nil
}

// gitContext derives the git source for resolution, falling back to the
// repository override when the local repository has no usable origin remote.
func (c *Coordinator) gitContext(ctx context.Context, root string) (*domain.GitContext, error) {
	repo, err := c.openGit(root)
	if err == nil {
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				c.logger.Warn(ctx, "failed to close git repository", map[string]any{
					"error": closeErr.Error(),
				})
			}
		}()

		gitCtx, ctxErr := repo.GetGitContext(ctx)
		if ctxErr == nil {
			if c.settings.BranchOverride != "" {
				gitCtx.Branch = c.settings.BranchOverride
			}
			return gitCtx, nil
		}
		err = ctxErr
	}

	if c.settings.RepositoryOverride != "" {
		branch := c.settings.BranchOverride
		if branch == "" {
			branch = domain.DefaultBranch
		}
		c.logger.Warn(ctx, "using repository override", map[string]any{
			"repository": c.settings.RepositoryOverride,
			"branch":     branch,
		})
		return &domain.GitContext{
			Repository: c.settings.RepositoryOverride,
			RemoteURL:  "https://github.com/" + c.settings.RepositoryOverride,
			Branch:     branch,
		}, nil
	}

	return nil, err
}

// fail transitions the run to its absorbing failed state: the outcome keeps
// the stage reached, gains a remediation instruction, and the error is
// propagated to the caller.
func (c *Coordinator) fail(ctx context.Context, outcome *domain.RunOutcome, err error) (*domain.RunOutcome, error) {
	outcome.Success = false
	outcome.NextSteps = remediationFor(err)

	c.logger.Error(ctx, "run halted", err, map[string]any{
		"stage": string(outcome.Stage),
	})
	return outcome, err
}

const manualNextSteps = `Your project is now configured for deployment on Coolify.

Files created or modified:
  - requirements.txt (regenerated from your project's dependencies)
  - Dockerfile
  - .dockerignore
  - settings.py (production blocks appended)
  - pyproject.toml / uv.lock (deployment dependencies added, uv projects only)

Next steps:
  - Review and commit the changes, then push them to your repository.
  - To deploy automatically, set COOLIFY_URL and COOLIFY_TOKEN and re-run
    with --automate.
  - Or create the application manually in the Coolify dashboard, pointing it
    at your repository with the Dockerfile build pack.`

const automatedNextSteps = `Deployment accepted by Coolify.

The build runs remotely; follow its progress at:
  %s

Remember to push any unpushed commits so Coolify builds the configured state.`

// remediationFor maps an error to the operator instruction reported in the
// outcome. Re-invocation is always safe: completed stages detect their work
// and no-op.
func remediationFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrProjectRootUnreadable):
		return "Check that the project path exists and is readable, then re-run."
	case errors.Is(err, domain.ErrDependencyAdd):
		return "The dependency tool failed; resolve the reported uv error (for example a uv.lock conflict) and re-run."
	case errors.Is(err, domain.ErrManifestWrite):
		return "Could not update the requirements manifest; check file permissions and re-run."
	case errors.Is(err, domain.ErrSettingsNotFound):
		return "No <project>/settings.py with a companion wsgi.py was found; run from the Django project root and re-run."
	case errors.Is(err, domain.ErrArtifactWrite):
		return "Could not write a deployment artifact; check file permissions and re-run."
	case errors.Is(err, domain.ErrMissingConfiguration):
		return "Set COOLIFY_URL and COOLIFY_TOKEN, then re-run with --automate. Configuration artifacts are already written."
	case errors.Is(err, domain.ErrNoRemoteOrigin), errors.Is(err, domain.ErrRepositoryNotFound):
		return "Configure a git 'origin' remote (or set COOLIFY_REPOSITORY to owner/repo) and re-run."
	case errors.Is(err, domain.ErrRemoteAuth):
		return "The Coolify instance rejected the API token; create a fresh token under Keys & Tokens and update COOLIFY_TOKEN."
	case errors.Is(err, domain.ErrNoServers):
		return "No servers are registered on the Coolify instance; add a server in the dashboard and re-run."
	case errors.Is(err, domain.ErrRemoteUnavailable):
		return "The Coolify instance was unreachable; check COOLIFY_URL and network access, then re-run. Completed work is reused."
	case errors.Is(err, domain.ErrStaleApplication):
		return "The application no longer exists on the platform; re-run to resolve and recreate it."
	default:
		return "Fix the reported error and re-run; completed stages are detected and skipped."
	}
}
