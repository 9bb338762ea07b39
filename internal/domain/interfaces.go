// Package domain defines the core business entities and interfaces for coolify-deploy.
// This package contains no external dependencies and represents the innermost layer
// of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
)

// Domain errors. Each maps to one failure class the coordinator can name in
// its RunOutcome remediation.
var (
	// ErrProjectRootUnreadable indicates the project root could not be read
	// during dependency-mode detection.
	ErrProjectRootUnreadable = errors.New("project root is not readable")

	// ErrDependencyAdd indicates the external dependency tool failed to add
	// a package to the structured declaration and lock file.
	ErrDependencyAdd = errors.New("dependency tool failed to add package")

	// ErrManifestWrite indicates the flat requirements manifest could not be
	// written.
	ErrManifestWrite = errors.New("could not write requirements manifest")

	// ErrArtifactWrite indicates a generated artifact could not be written.
	ErrArtifactWrite = errors.New("could not write deployment artifact")

	// ErrSettingsNotFound indicates no settings module was found to anchor
	// the production settings patch.
	ErrSettingsNotFound = errors.New("no Django settings module found")

	// ErrMissingConfiguration indicates automated deployment was requested
	// without the required platform configuration.
	ErrMissingConfiguration = errors.New("COOLIFY_URL and COOLIFY_TOKEN are required for automated deployment")

	// ErrRemoteAuth indicates the platform rejected the API token.
	ErrRemoteAuth = errors.New("platform rejected the API token")

	// ErrRemoteRejected indicates the platform rejected a request as
	// invalid (a non-auth 4xx). Never retried.
	ErrRemoteRejected = errors.New("platform rejected the request")

	// ErrRemoteUnavailable indicates transport failures or 5xx responses
	// persisted after bounded retries.
	ErrRemoteUnavailable = errors.New("platform unreachable after retries")

	// ErrNoServers indicates the Coolify instance has no servers to deploy to.
	ErrNoServers = errors.New("no servers registered on the Coolify instance")

	// ErrStaleApplication indicates the application handle no longer exists
	// remotely; resolution must be re-run.
	ErrStaleApplication = errors.New("application no longer exists on the platform")

	// ErrRepositoryNotFound indicates the project root is not a git repository.
	ErrRepositoryNotFound = errors.New("git repository not found at specified path")

	// ErrNoRemoteOrigin indicates no 'origin' remote is configured.
	ErrNoRemoteOrigin = errors.New("no 'origin' remote configured; cannot determine repository")

	// ErrInvalidRemoteURL indicates the remote URL could not be parsed.
	ErrInvalidRemoteURL = errors.New("could not parse repository name from remote URL")
)

// ProjectInspector builds the ProjectContext for a run: dependency mode plus
// the location of the Django settings module. Pure inspection, no side effects.
// Returns ErrProjectRootUnreadable only if the root cannot be read; a missing
// settings module leaves SettingsPath empty rather than failing, so manifest
// synchronization can still proceed.
type ProjectInspector interface {
	Inspect(ctx context.Context, root string) (*ProjectContext, error)
}

// ManifestSynchronizer ensures the project's dependency manifests declare
// every entry of deps.
//
// In lock-based mode missing entries are added through the dependency tool
// (which owns the lock file) and the flat manifest is regenerated from the
// resolved lock. In plain mode the flat manifest is merged in place; existing
// user pins always win. Re-running with nothing to add is a no-op apart from
// the unconditional flat regeneration in lock-based mode.
type ManifestSynchronizer interface {
	Sync(ctx context.Context, project *ProjectContext, deps []Dependency) error
}

// ArtifactGenerator idempotently writes the container build artifacts:
// Dockerfile (unconditional overwrite), .dockerignore (append missing
// patterns only), and the marker-guarded production settings blocks.
type ArtifactGenerator interface {
	Generate(ctx context.Context, project *ProjectContext, port int) error
}

// LocalGitRepository provides git context from a local repository.
type LocalGitRepository interface {
	// GetGitContext extracts the origin repository name, clone URL and
	// current branch. Returns ErrNoRemoteOrigin if no origin remote is
	// configured. Logs a warning if HEAD is detached but continues with an
	// empty branch name.
	GetGitContext(ctx context.Context) (*GitContext, error)

	// Close releases any resources held by the repository.
	Close() error
}

// PlatformAPI is the outbound port to the Coolify HTTP API. Every call is a
// plain lookup or create; idempotence is the caller's job (list, match by
// stable key, create only on no-match).
type PlatformAPI interface {
	ListProjects(ctx context.Context) ([]RemoteProject, error)
	CreateProject(ctx context.Context, name, description string) (*RemoteProject, error)
	ListServers(ctx context.Context) ([]RemoteServer, error)
	ListApplications(ctx context.Context, projectUUID string) ([]RemoteApplication, error)
	CreateApplication(ctx context.Context, req CreateApplicationRequest) (*RemoteApplication, error)
	Deploy(ctx context.Context, applicationUUID string) (*Deployment, error)

	// DashboardURL returns the platform dashboard location for an
	// application, for operator follow-up.
	DashboardURL(applicationUUID string) string
}

// TopologyResolver returns the RemoteApplication for a git source, creating
// the project and/or application when they do not exist yet. Repeated calls
// with the same repository and branch return the same application without
// issuing additional create calls.
type TopologyResolver interface {
	Resolve(ctx context.Context, git *GitContext, project *ProjectContext, port int) (*RemoteApplication, error)
}

// DeployTrigger issues the deploy call for a resolved application. It is
// fire-and-report: success means the deployment was accepted for processing,
// not that it completed.
type DeployTrigger interface {
	Trigger(ctx context.Context, app *RemoteApplication) (*Deployment, error)
}

// Coordinator sequences one full configuration-and-deployment run.
// The returned RunOutcome is non-nil even when err is non-nil.
type Coordinator interface {
	Run(ctx context.Context, input RunInput) (*RunOutcome, error)
}

// OutcomeWriter renders a RunOutcome for the operator.
type OutcomeWriter interface {
	WriteOutcome(outcome *RunOutcome) error
}
