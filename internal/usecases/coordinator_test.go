package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

// mockInspector implements domain.ProjectInspector for testing.
type mockInspector struct {
	project *domain.ProjectContext
	err     error
}

func (m *mockInspector) Inspect(_ context.Context, _ string) (*domain.ProjectContext, error) {
	return m.project, m.err
}

// mockSynchronizer implements domain.ManifestSynchronizer for testing.
type mockSynchronizer struct {
	err   error
	calls int
}

func (m *mockSynchronizer) Sync(_ context.Context, _ *domain.ProjectContext, _ []domain.Dependency) error {
	m.calls++
	return m.err
}

// mockGenerator implements domain.ArtifactGenerator for testing.
type mockGenerator struct {
	err   error
	calls int
}

func (m *mockGenerator) Generate(_ context.Context, _ *domain.ProjectContext, _ int) error {
	m.calls++
	return m.err
}

// mockGitRepo implements domain.LocalGitRepository for testing.
type mockGitRepo struct {
	gitContext  *domain.GitContext
	gitCtxErr   error
	closeCalled bool
}

func (m *mockGitRepo) GetGitContext(_ context.Context) (*domain.GitContext, error) {
	return m.gitContext, m.gitCtxErr
}

func (m *mockGitRepo) Close() error {
	m.closeCalled = true
	return nil
}

// mockResolver implements domain.TopologyResolver for testing.
type mockResolver struct {
	app   *domain.RemoteApplication
	err   error
	calls int
}

func (m *mockResolver) Resolve(_ context.Context, _ *domain.GitContext, _ *domain.ProjectContext, _ int) (*domain.RemoteApplication, error) {
	m.calls++
	return m.app, m.err
}

// mockTrigger implements domain.DeployTrigger for testing.
type mockTrigger struct {
	deployment *domain.Deployment
	err        error
	calls      int
}

func (m *mockTrigger) Trigger(_ context.Context, _ *domain.RemoteApplication) (*domain.Deployment, error) {
	m.calls++
	return m.deployment, m.err
}

type coordinatorFixture struct {
	inspector *mockInspector
	sync      *mockSynchronizer
	generator *mockGenerator
	gitRepo   *mockGitRepo
	openErr   error
	resolver  *mockResolver
	trigger   *mockTrigger
	settings  Settings
}

func defaultFixture() *coordinatorFixture {
	return &coordinatorFixture{
		inspector: &mockInspector{
			project: &domain.ProjectContext{
				Root:         ".",
				Mode:         domain.ModeLockBased,
				AppName:      "mysite",
				SettingsPath: "mysite/settings.py",
			},
		},
		sync:      &mockSynchronizer{},
		generator: &mockGenerator{},
		gitRepo: &mockGitRepo{
			gitContext: &domain.GitContext{
				Repository: "acme/mysite",
				RemoteURL:  "https://github.com/acme/mysite",
				Branch:     "main",
			},
		},
		resolver: &mockResolver{app: &domain.RemoteApplication{UUID: "a-1"}},
		trigger:  &mockTrigger{deployment: &domain.Deployment{UUID: "d-1"}},
		settings: Settings{
			PlatformConfigured: true,
			DashboardBase:      "https://coolify.example.com",
			Port:               8000,
		},
	}
}

func (f *coordinatorFixture) coordinator() *Coordinator {
	openGit := func(_ string) (domain.LocalGitRepository, error) {
		if f.openErr != nil {
			return nil, f.openErr
		}
		return f.gitRepo, nil
	}
	return NewCoordinator(
		f.inspector, f.sync, f.generator, openGit, f.resolver, f.trigger, f.settings, &mockLogger{},
	)
}

func TestCoordinator_Run_ManualMode(t *testing.T) {
	f := defaultFixture()
	coordinator := f.coordinator()

	outcome, err := coordinator.Run(context.Background(), domain.RunInput{Root: ".", Automate: false})

	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, domain.StageDone, outcome.Stage)
	assert.False(t, outcome.Automated)
	assert.Equal(t, domain.ModeLockBased, outcome.Mode)
	assert.Contains(t, outcome.NextSteps, "--automate")

	// Manual mode touches nothing remote.
	assert.Equal(t, 0, f.resolver.calls)
	assert.Equal(t, 0, f.trigger.calls)
	assert.Equal(t, 1, f.sync.calls)
	assert.Equal(t, 1, f.generator.calls)
}

func TestCoordinator_Run_AutomatedSuccess(t *testing.T) {
	f := defaultFixture()
	coordinator := f.coordinator()

	outcome, err := coordinator.Run(context.Background(), domain.RunInput{Root: ".", Automate: true})

	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, domain.StageDone, outcome.Stage)
	assert.True(t, outcome.Automated)
	assert.Equal(t, "d-1", outcome.DeploymentUUID)
	assert.Equal(t, "https://coolify.example.com/project/a-1", outcome.DashboardURL)
	assert.Contains(t, outcome.NextSteps, outcome.DashboardURL)

	assert.Equal(t, 1, f.resolver.calls)
	assert.Equal(t, 1, f.trigger.calls)
	assert.True(t, f.gitRepo.closeCalled)
}

func TestCoordinator_Run_MissingConfiguration(t *testing.T) {
	f := defaultFixture()
	f.settings.PlatformConfigured = false
	coordinator := f.coordinator()

	outcome, err := coordinator.Run(context.Background(), domain.RunInput{Root: ".", Automate: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingConfiguration)

	// Local configuration completed; the halt happens before any network
	// activity, at the generating stage.
	require.NotNil(t, outcome)
	assert.False(t, outcome.Success)
	assert.Equal(t, domain.StageGenerating, outcome.Stage)
	assert.Contains(t, outcome.NextSteps, "COOLIFY_URL")
	assert.Contains(t, outcome.NextSteps, "COOLIFY_TOKEN")
	assert.Equal(t, 1, f.generator.calls)
	assert.Equal(t, 0, f.resolver.calls)
	assert.Equal(t, 0, f.trigger.calls)
}

func TestCoordinator_Run_HaltsAtFailedStage(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*coordinatorFixture)
		wantStage domain.Stage
		wantErr   error
	}{
		{
			name: "detection failure",
			mutate: func(f *coordinatorFixture) {
				f.inspector.err = domain.ErrProjectRootUnreadable
				f.inspector.project = nil
			},
			wantStage: domain.StageDetecting,
			wantErr:   domain.ErrProjectRootUnreadable,
		},
		{
			name: "synchronization failure",
			mutate: func(f *coordinatorFixture) {
				f.sync.err = domain.ErrDependencyAdd
			},
			wantStage: domain.StageSynchronizing,
			wantErr:   domain.ErrDependencyAdd,
		},
		{
			name: "generation failure",
			mutate: func(f *coordinatorFixture) {
				f.generator.err = domain.ErrSettingsNotFound
			},
			wantStage: domain.StageGenerating,
			wantErr:   domain.ErrSettingsNotFound,
		},
		{
			name: "resolution failure",
			mutate: func(f *coordinatorFixture) {
				f.resolver.err = domain.ErrRemoteAuth
				f.resolver.app = nil
			},
			wantStage: domain.StageResolving,
			wantErr:   domain.ErrRemoteAuth,
		},
		{
			name: "trigger failure",
			mutate: func(f *coordinatorFixture) {
				f.trigger.err = domain.ErrStaleApplication
				f.trigger.deployment = nil
			},
			wantStage: domain.StageTriggering,
			wantErr:   domain.ErrStaleApplication,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaultFixture()
			tt.mutate(f)
			coordinator := f.coordinator()

			outcome, err := coordinator.Run(context.Background(), domain.RunInput{Root: ".", Automate: true})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			require.NotNil(t, outcome)
			assert.False(t, outcome.Success)
			assert.Equal(t, tt.wantStage, outcome.Stage)
			assert.NotEmpty(t, outcome.NextSteps)
		})
	}
}

func TestCoordinator_Run_LaterStagesSkippedAfterFailure(t *testing.T) {
	f := defaultFixture()
	f.sync.err = domain.ErrManifestWrite
	coordinator := f.coordinator()

	_, err := coordinator.Run(context.Background(), domain.RunInput{Root: ".", Automate: true})

	require.Error(t, err)
	assert.Equal(t, 0, f.generator.calls)
	assert.Equal(t, 0, f.resolver.calls)
	assert.Equal(t, 0, f.trigger.calls)
}

func TestCoordinator_Run_RepositoryOverride(t *testing.T) {
	t.Run("no repository and no override fails", func(t *testing.T) {
		f := defaultFixture()
		f.openErr = domain.ErrRepositoryNotFound
		coordinator := f.coordinator()

		outcome, err := coordinator.Run(context.Background(), domain.RunInput{Root: ".", Automate: true})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrRepositoryNotFound)
		assert.Equal(t, domain.StageResolving, outcome.Stage)
	})

	t.Run("override substitutes for a missing origin remote", func(t *testing.T) {
		f := defaultFixture()
		f.gitRepo.gitCtxErr = domain.ErrNoRemoteOrigin
		f.settings.RepositoryOverride = "acme/mysite"
		f.settings.BranchOverride = "staging"
		coordinator := f.coordinator()

		outcome, err := coordinator.Run(context.Background(), domain.RunInput{Root: ".", Automate: true})

		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, 1, f.resolver.calls)
	})
}

func TestCoordinator_Run_BranchOverride(t *testing.T) {
	f := defaultFixture()
	f.settings.BranchOverride = "staging"

	var seenBranch string
	openGit := func(_ string) (domain.LocalGitRepository, error) {
		return f.gitRepo, nil
	}
	resolver := &recordingResolver{onResolve: func(git *domain.GitContext) {
		seenBranch = git.Branch
	}}
	coordinator := NewCoordinator(
		f.inspector, f.sync, f.generator, openGit, resolver, f.trigger, f.settings, &mockLogger{},
	)

	_, err := coordinator.Run(context.Background(), domain.RunInput{Root: ".", Automate: true})

	require.NoError(t, err)
	assert.Equal(t, "staging", seenBranch)
}

// recordingResolver captures the git context handed to Resolve.
type recordingResolver struct {
	onResolve func(*domain.GitContext)
}

func (r *recordingResolver) Resolve(_ context.Context, git *domain.GitContext, _ *domain.ProjectContext, _ int) (*domain.RemoteApplication, error) {
	if r.onResolve != nil {
		r.onResolve(git)
	}
	return &domain.RemoteApplication{UUID: "a-1"}, nil
}

func TestRemediationFor_UnknownError(t *testing.T) {
	msg := remediationFor(errors.New("boom"))

	assert.Contains(t, msg, "re-run")
}
