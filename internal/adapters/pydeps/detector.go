// Package pydeps provides adapters for inspecting and mutating a Python
// project's dependency declarations. It implements the domain.ProjectInspector
// and domain.ManifestSynchronizer interfaces.
package pydeps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

// Well-known file names at the project root.
const (
	pyprojectFile    = "pyproject.toml"
	lockFile         = "uv.lock"
	requirementsFile = "requirements.txt"
	settingsFile     = "settings.py"
	wsgiFile         = "wsgi.py"
)

// Logger defines the logging interface for the pydeps adapters.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
}

// Detector implements domain.ProjectInspector. It decides the dependency
// mode and locates the Django settings module. Pure inspection, no side effects.
type Detector struct {
	logger Logger
}

// NewDetector creates a new Detector.
func NewDetector(log Logger) *Detector {
	return &Detector{logger: log}
}

// Inspect builds the ProjectContext for the project at root.
// Returns domain.ErrProjectRootUnreadable if the root cannot be read.
// A missing settings module is not an error here: SettingsPath is left empty
// and artifact generation reports it.
func (d *Detector) Inspect(ctx context.Context, root string) (*domain.ProjectContext, error) {
	mode, err := d.Detect(ctx, root)
	if err != nil {
		return nil, err
	}

	project := &domain.ProjectContext{
		Root: root,
		Mode: mode,
	}

	appName, settingsPath := findDjangoPackage(root)
	if settingsPath == "" {
		d.logger.Warn(ctx, "no Django settings module found under project root", map[string]any{
			"root": root,
		})
		appName = sanitizeName(filepath.Base(absOrSelf(root)))
	}
	project.AppName = appName
	project.SettingsPath = settingsPath

	d.logger.Debug(ctx, "inspected project", map[string]any{
		"root":          root,
		"mode":          string(mode),
		"app_name":      project.AppName,
		"settings_path": project.SettingsPath,
	})

	return project, nil
}

// Detect returns ModeLockBased when both pyproject.toml and uv.lock are
// present at the root, ModePlain otherwise. A declaration without its lock
// (or the reverse) resolves to plain: a partially-initialized lock toolchain
// is not assumed usable.
func (d *Detector) Detect(_ context.Context, root string) (domain.DependencyMode, error) {
	if _, err := os.ReadDir(root); err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrProjectRootUnreadable, root, err)
	}

	hasPyproject := fileExists(filepath.Join(root, pyprojectFile))
	hasLock := fileExists(filepath.Join(root, lockFile))

	if hasPyproject && hasLock {
		return domain.ModeLockBased, nil
	}
	return domain.ModePlain, nil
}

// findDjangoPackage locates the Django project package: the first directory
// under root (sorted by os.ReadDir) containing both settings.py and wsgi.py.
// Returns the package name and the settings.py path, or empty strings.
func findDjangoPackage(root string) (string, string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", ""
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		settings := filepath.Join(dir, settingsFile)
		if fileExists(settings) && fileExists(filepath.Join(dir, wsgiFile)) {
			return entry.Name(), settings
		}
	}
	return "", ""
}

// sanitizeName lowercases a name and replaces underscores so it is usable as
// a platform resource name.
func sanitizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

func absOrSelf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
