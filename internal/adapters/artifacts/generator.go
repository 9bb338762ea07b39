// Package artifacts writes the container build artifacts a Coolify deployment
// needs: the Dockerfile, the .dockerignore file, and the production blocks
// appended to the Django settings module. Every write is staged to a
// temporary file and renamed into place, so an interrupted run never leaves a
// truncated artifact. It implements domain.ArtifactGenerator.
package artifacts

import (
	"context"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

const artifactMode = 0o644

// Logger defines the logging interface for the artifacts adapter.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
}

// Generator implements domain.ArtifactGenerator.
type Generator struct {
	logger Logger
}

// NewGenerator creates a new Generator.
func NewGenerator(log Logger) *Generator {
	return &Generator{logger: log}
}

// Generate writes all three artifact kinds. The Dockerfile is always
// overwritten (it is fully generated, never hand-edited); the .dockerignore
// and settings patches preserve user content and are no-ops when already
// applied.
func (g *Generator) Generate(ctx context.Context, project *domain.ProjectContext, port int) error {
	if port <= 0 {
		port = domain.DefaultPort
	}

	if err := g.writeDockerfile(ctx, project, port); err != nil {
		return err
	}
	if err := g.ensureDockerignore(ctx, project.Root); err != nil {
		return err
	}
	return g.patchSettings(ctx, project)
}
