// Package domain defines the core business entities and interfaces for coolify-deploy.
package domain

// DependencyMode identifies how a project manages its Python dependencies.
type DependencyMode string

const (
	// ModeLockBased indicates the project uses pyproject.toml with a uv.lock
	// file. Dependency mutations go through the uv CLI, never direct edits.
	ModeLockBased DependencyMode = "lock-based"

	// ModePlain indicates the project uses only a flat requirements.txt.
	ModePlain DependencyMode = "plain"
)

// ProjectContext describes the local project being configured for deployment.
// It is built once at the start of a run and read-only thereafter.
type ProjectContext struct {
	// Root is the path to the project root.
	Root string

	// Mode is the detected dependency-management mode.
	Mode DependencyMode

	// AppName is the Django project package name (the directory containing
	// settings.py and wsgi.py). Used for the gunicorn entry point and
	// remote application naming.
	AppName string

	// SettingsPath is the path to the project's settings.py. Empty when no
	// settings module was found; artifact generation fails in that case.
	SettingsPath string
}

// Dependency is one deployment-required package with its version constraint.
type Dependency struct {
	// Name is the package name as published on PyPI.
	Name string

	// Constraint is the minimum-version constraint, e.g. ">=20.1.0".
	// Constraints are never downgraded across releases of this tool.
	Constraint string

	// Fallback is a known-good pinned version written to the flat manifest
	// when the lock export is unavailable.
	Fallback string
}

// Requirement returns the requirement string passed to the dependency tool,
// e.g. "gunicorn>=20.1.0".
func (d Dependency) Requirement() string {
	return d.Name + d.Constraint
}

// DeploymentDependencies is the fixed set of packages every deployed project
// needs: the WSGI server, the PostgreSQL driver, database-URL parsing, and
// static-file serving.
var DeploymentDependencies = []Dependency{
	{Name: "dj-database-url", Constraint: ">=1.0.0", Fallback: "2.3.0"},
	{Name: "gunicorn", Constraint: ">=20.1.0", Fallback: "23.0.0"},
	{Name: "psycopg2-binary", Constraint: ">=2.9.0", Fallback: "2.9.10"},
	{Name: "whitenoise", Constraint: ">=6.0.0", Fallback: "6.8.2"},
}

// GitContext contains the git information needed to bind a remote application
// to its source repository.
type GitContext struct {
	// Repository is the repository name in owner/repo format, derived from
	// the 'origin' remote URL or from the COOLIFY_REPOSITORY override.
	Repository string

	// RemoteURL is the HTTPS clone URL the platform will fetch from.
	// SSH-style origin URLs are normalized to HTTPS.
	RemoteURL string

	// Branch is the current branch name (empty string if HEAD is detached).
	Branch string

	// IsDetached indicates if HEAD is detached (not on a branch).
	IsDetached bool
}

// RemoteProject is a logical grouping on the Coolify instance.
type RemoteProject struct {
	UUID string
	Name string
}

// RemoteApplication is the deployable unit bound to a git source. It belongs
// to exactly one RemoteProject.
type RemoteApplication struct {
	UUID        string
	ProjectUUID string
	Name        string
	GitURL      string
	Branch      string
}

// RemoteServer is a deployment target registered on the Coolify instance.
type RemoteServer struct {
	UUID string
	Name string
	IP   string
}

// CreateApplicationRequest carries the fields needed to create an application
// under a project with a dockerfile build strategy.
type CreateApplicationRequest struct {
	ProjectUUID     string
	ServerUUID      string
	EnvironmentName string
	Name            string
	Description     string
	GitRepository   string
	GitBranch       string
	Port            int
}

// Deployment is the handle returned when a deploy call is accepted.
// Acceptance does not mean the remote build pipeline has finished.
type Deployment struct {
	UUID string
}

// Stage identifies how far a run progressed through the pipeline.
type Stage string

const (
	StageDetecting     Stage = "detecting"
	StageSynchronizing Stage = "synchronizing"
	StageGenerating    Stage = "generating"
	StageResolving     Stage = "resolving"
	StageTriggering    Stage = "triggering"
	StageDone          Stage = "done"
)

// RunInput contains the parameters for one coordinator invocation.
type RunInput struct {
	// Root is the project root path.
	Root string

	// Automate requests the full remote deployment after local
	// configuration. When false the run stops after artifact generation
	// and reports manual next steps.
	Automate bool
}

// RunOutcome is the result of one invocation. It is always produced, even on
// failure, so the operator knows which stage was reached and what to do next.
type RunOutcome struct {
	// Stage is the last stage the run entered.
	Stage Stage

	// Success indicates the run completed its requested scope.
	Success bool

	// Automated indicates whether remote deployment was requested.
	Automated bool

	// Mode is the detected dependency mode (empty if detection failed).
	Mode DependencyMode

	// DashboardURL points at the application on the Coolify instance after
	// an automated run.
	DashboardURL string

	// DeploymentUUID identifies the accepted deployment, when one was
	// triggered.
	DeploymentUUID string

	// NextSteps is human-readable guidance: success follow-up for completed
	// runs, a concrete remediation instruction for halted ones.
	NextSteps string
}

// DefaultPort is the container port exposed by generated Dockerfiles.
const DefaultPort = 8000

// DefaultBranch is the branch deployed when none can be read from the local
// repository.
const DefaultBranch = "main"

// DefaultEnvironment is the Coolify environment applications are created in.
const DefaultEnvironment = "production"
