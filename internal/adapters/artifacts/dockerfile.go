package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/moby/sys/atomicwriter"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

const dockerfileName = "Dockerfile"

// dockerfileTemplate builds the Django application image. Both modes install
// from requirements.txt (the portable manifest); lock-based projects install
// with --no-deps because the export already contains the fully resolved graph.
var dockerfileTemplate = template.Must(template.New(dockerfileName).Parse(`FROM python:3.12-slim

ENV PYTHONDONTWRITEBYTECODE=1 \
    PYTHONUNBUFFERED=1

WORKDIR /app

RUN apt-get update \
    && apt-get install -y --no-install-recommends libpq5 \
    && rm -rf /var/lib/apt/lists/*

COPY requirements.txt .
RUN pip install --no-cache-dir{{if .LockBased}} --no-deps{{end}} -r requirements.txt

COPY . .

RUN python manage.py collectstatic --noinput

EXPOSE {{.Port}}

CMD ["gunicorn", "{{.AppName}}.wsgi:application", "--bind", "0.0.0.0:{{.Port}}", "--workers", "2"]
`))

type dockerfileParams struct {
	AppName   string
	Port      int
	LockBased bool
}

// writeDockerfile renders and unconditionally overwrites the Dockerfile.
func (g *Generator) writeDockerfile(ctx context.Context, project *domain.ProjectContext, port int) error {
	path := filepath.Join(project.Root, dockerfileName)

	var buf bytes.Buffer
	err := dockerfileTemplate.Execute(&buf, dockerfileParams{
		AppName:   project.AppName,
		Port:      port,
		LockBased: project.Mode == domain.ModeLockBased,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrArtifactWrite, path, err)
	}

	if err := atomicwriter.WriteFile(path, buf.Bytes(), artifactMode); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrArtifactWrite, path, err)
	}

	g.logger.Info(ctx, "wrote Dockerfile", map[string]any{
		"path": path,
		"port": port,
		"mode": string(project.Mode),
	})
	return nil
}
