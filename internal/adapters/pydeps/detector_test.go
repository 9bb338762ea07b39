package pydeps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

// mockLogger implements the Logger interface for testing.
type mockLogger struct{}

func (m *mockLogger) Info(_ context.Context, _ string, _ map[string]any)  {}
func (m *mockLogger) Debug(_ context.Context, _ string, _ map[string]any) {}
func (m *mockLogger) Warn(_ context.Context, _ string, _ map[string]any)  {}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetector_Detect(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		wantMode domain.DependencyMode
	}{
		{
			name:     "pyproject and lock present",
			files:    []string{"pyproject.toml", "uv.lock"},
			wantMode: domain.ModeLockBased,
		},
		{
			name:     "only requirements present",
			files:    []string{"requirements.txt"},
			wantMode: domain.ModePlain,
		},
		{
			name:     "declaration without lock resolves to plain",
			files:    []string{"pyproject.toml"},
			wantMode: domain.ModePlain,
		},
		{
			name:     "lock without declaration resolves to plain",
			files:    []string{"uv.lock"},
			wantMode: domain.ModePlain,
		},
		{
			name:     "empty project",
			files:    nil,
			wantMode: domain.ModePlain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, filepath.Join(root, f), "")
			}

			detector := NewDetector(&mockLogger{})
			mode, err := detector.Detect(context.Background(), root)

			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, mode)
		})
	}
}

func TestDetector_Detect_UnreadableRoot(t *testing.T) {
	detector := NewDetector(&mockLogger{})

	_, err := detector.Detect(context.Background(), filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProjectRootUnreadable)
}

func TestDetector_Inspect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pyproject.toml"), "")
	writeFile(t, filepath.Join(root, "uv.lock"), "")
	writeFile(t, filepath.Join(root, "mysite", "settings.py"), "DEBUG = True\n")
	writeFile(t, filepath.Join(root, "mysite", "wsgi.py"), "")
	// A directory with settings.py but no wsgi.py must not be chosen.
	writeFile(t, filepath.Join(root, "docs", "settings.py"), "")

	detector := NewDetector(&mockLogger{})
	project, err := detector.Inspect(context.Background(), root)

	require.NoError(t, err)
	assert.Equal(t, domain.ModeLockBased, project.Mode)
	assert.Equal(t, "mysite", project.AppName)
	assert.Equal(t, filepath.Join(root, "mysite", "settings.py"), project.SettingsPath)
}

func TestDetector_Inspect_NoSettingsModule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "requirements.txt"), "django\n")

	detector := NewDetector(&mockLogger{})
	project, err := detector.Inspect(context.Background(), root)

	require.NoError(t, err)
	assert.Equal(t, domain.ModePlain, project.Mode)
	assert.Empty(t, project.SettingsPath)
	assert.NotEmpty(t, project.AppName)
}

func TestDetector_Inspect_ModeDeterminism(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pyproject.toml"), "")
	writeFile(t, filepath.Join(root, "uv.lock"), "")

	detector := NewDetector(&mockLogger{})

	mode, err := detector.Detect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeLockBased, mode)

	// Removing the lock file always yields plain.
	require.NoError(t, os.Remove(filepath.Join(root, "uv.lock")))

	mode, err = detector.Detect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, domain.ModePlain, mode)
}
