package pydeps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/moby/sys/atomicwriter"
	"github.com/pelletier/go-toml/v2"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

// uvCommand is the dependency tool owning pyproject.toml and uv.lock in
// lock-based mode. The lock format is never parsed or edited here.
const uvCommand = "uv"

const manifestMode = 0o644

// Synchronizer implements domain.ManifestSynchronizer.
type Synchronizer struct {
	runner CommandRunner
	logger Logger
}

// NewSynchronizer creates a new Synchronizer using the given command runner
// for dependency-tool invocations.
func NewSynchronizer(runner CommandRunner, log Logger) *Synchronizer {
	return &Synchronizer{runner: runner, logger: log}
}

// Sync ensures every entry of deps is declared by the project's manifests.
//
// Lock-based mode: entries missing from pyproject.toml are added in one
// batched "uv add" invocation, then requirements.txt is unconditionally
// regenerated from the resolved lock via "uv export". If the export is
// unavailable, known-good pins for deps are merged with the existing
// requirements.txt contents instead.
//
// Plain mode: entries whose names are absent from requirements.txt are merged
// in and the file is rewritten in sorted order. Existing user pins always
// win, and a file that already declares everything is left untouched.
func (s *Synchronizer) Sync(ctx context.Context, project *domain.ProjectContext, deps []domain.Dependency) error {
	switch project.Mode {
	case domain.ModeLockBased:
		return s.syncLockBased(ctx, project, deps)
	default:
		return s.syncPlain(ctx, project, deps)
	}
}

func (s *Synchronizer) syncLockBased(ctx context.Context, project *domain.ProjectContext, deps []domain.Dependency) error {
	declared, err := readDeclaredDependencies(filepath.Join(project.Root, pyprojectFile))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrManifestWrite, err)
	}

	var missing []domain.Dependency
	for _, dep := range deps {
		if _, ok := declared[normalizePackageName(dep.Name)]; !ok {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		args := []string{"add"}
		for _, dep := range missing {
			args = append(args, dep.Requirement())
		}

		s.logger.Info(ctx, "adding deployment dependencies via uv", map[string]any{
			"packages": len(missing),
		})

		// One batched invocation; uv updates pyproject.toml and uv.lock
		// together. On failure nothing is regenerated, so a re-run starts
		// from a consistent state.
		if _, err := s.runner.Run(ctx, project.Root, uvCommand, args...); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrDependencyAdd, err)
		}
	} else {
		s.logger.Debug(ctx, "all deployment dependencies already declared", nil)
	}

	return s.regenerateRequirements(ctx, project, deps)
}

// regenerateRequirements rewrites requirements.txt from the resolved lock.
// Version pins come from uv.lock, not from pyproject.toml, so the export is
// the only authoritative path; the fallback merge covers environments where
// the installed uv predates the export subcommand.
func (s *Synchronizer) regenerateRequirements(ctx context.Context, project *domain.ProjectContext, deps []domain.Dependency) error {
	path := filepath.Join(project.Root, requirementsFile)

	out, err := s.runner.Run(ctx, project.Root, uvCommand, "export", "--format", "requirements-txt")
	if err == nil {
		if werr := atomicwriter.WriteFile(path, out, manifestMode); werr != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrManifestWrite, path, werr)
		}
		s.logger.Info(ctx, "regenerated requirements.txt from lock", map[string]any{
			"path": path,
		})
		return nil
	}

	s.logger.Warn(ctx, "uv export unavailable; writing pinned fallback versions", map[string]any{
		"error": err.Error(),
	})

	existing, names, rerr := readRequirements(path)
	if rerr != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrManifestWrite, path, rerr)
	}

	lines := existing
	for _, dep := range deps {
		if _, ok := names[normalizePackageName(dep.Name)]; !ok {
			lines = append(lines, dep.Name+"=="+dep.Fallback)
		}
	}

	if err := writeRequirements(path, lines); err != nil {
		return err
	}
	return nil
}

func (s *Synchronizer) syncPlain(ctx context.Context, project *domain.ProjectContext, deps []domain.Dependency) error {
	path := filepath.Join(project.Root, requirementsFile)

	existing, names, err := readRequirements(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrManifestWrite, path, err)
	}

	var added []string
	for _, dep := range deps {
		if _, ok := names[normalizePackageName(dep.Name)]; !ok {
			added = append(added, dep.Requirement())
		}
	}

	if len(added) == 0 && fileExists(path) {
		s.logger.Debug(ctx, "requirements.txt already declares all deployment dependencies", map[string]any{
			"path": path,
		})
		return nil
	}

	lines := append(existing, added...)
	sort.Strings(lines)

	if err := writeRequirements(path, lines); err != nil {
		return err
	}

	s.logger.Info(ctx, "updated requirements.txt", map[string]any{
		"path":  path,
		"added": len(added),
	})
	return nil
}

// pyprojectDoc is the subset of pyproject.toml this tool reads. Only the
// declaration is consulted; resolved versions live in uv.lock.
type pyprojectDoc struct {
	Project struct {
		Name         string   `toml:"name"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
}

// readDeclaredDependencies returns the set of normalized package names
// declared under [project] dependencies.
func readDeclaredDependencies(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc pyprojectDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	declared := make(map[string]struct{}, len(doc.Project.Dependencies))
	for _, spec := range doc.Project.Dependencies {
		if name := requirementName(spec); name != "" {
			declared[name] = struct{}{}
		}
	}
	return declared, nil
}

// readRequirements reads a flat requirements file, returning its non-empty
// lines and the set of normalized package names it declares. A missing file
// yields empty results.
func readRequirements(path string) ([]string, map[string]struct{}, error) {
	names := make(map[string]struct{})

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, names, nil
		}
		return nil, nil, err
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if name := requirementName(line); name != "" {
			names[name] = struct{}{}
		}
	}
	return lines, names, nil
}

func writeRequirements(path string, lines []string) error {
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := atomicwriter.WriteFile(path, []byte(content), manifestMode); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrManifestWrite, path, err)
	}
	return nil
}

// requirementNamePattern matches the leading package name of a PEP 508
// requirement line.
var requirementNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)

// requirementName extracts the normalized package name from a requirement
// spec such as "gunicorn>=20.1.0" or "requests[socks]==2.32.0".
// Comment lines and pip options yield an empty string.
func requirementName(spec string) string {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.HasPrefix(spec, "#") || strings.HasPrefix(spec, "-") {
		return ""
	}
	match := requirementNamePattern.FindString(spec)
	return normalizePackageName(match)
}

// normalizePackageName applies PEP 503 normalization: case-insensitive, with
// runs of "-", "_" and "." treated as equivalent.
func normalizePackageName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, ".", "-")
	return name
}
