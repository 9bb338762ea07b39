package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/sys/atomicwriter"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

const dockerignoreName = ".dockerignore"

// requiredIgnorePatterns keeps version control, virtual environments, caches
// and local env files out of the build context. User additions are preserved;
// only missing patterns are appended.
var requiredIgnorePatterns = []string{
	".git",
	".gitignore",
	"__pycache__/",
	"*.pyc",
	"*.pyo",
	".venv/",
	"venv/",
	"env/",
	".mypy_cache",
	".pytest_cache",
	".coverage",
	".DS_Store",
	"*.log",
	"*.sqlite3",
	"db.sqlite3",
	".env",
	".env.*",
	"node_modules/",
	"staticfiles/",
}

// ensureDockerignore creates the ignore file with the full fixed pattern set,
// or appends whichever required patterns an existing file lacks.
func (g *Generator) ensureDockerignore(ctx context.Context, root string) error {
	path := filepath.Join(root, dockerignoreName)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %s: %w", domain.ErrArtifactWrite, path, err)
	}

	present := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		present[strings.TrimSpace(line)] = struct{}{}
	}

	var missing []string
	for _, pattern := range requiredIgnorePatterns {
		if _, ok := present[pattern]; !ok {
			missing = append(missing, pattern)
		}
	}

	if len(missing) == 0 {
		g.logger.Debug(ctx, ".dockerignore already has all required patterns", map[string]any{
			"path": path,
		})
		return nil
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += strings.Join(missing, "\n") + "\n"

	if err := atomicwriter.WriteFile(path, []byte(content), artifactMode); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrArtifactWrite, path, err)
	}

	g.logger.Info(ctx, "updated .dockerignore", map[string]any{
		"path":  path,
		"added": len(missing),
	})
	return nil
}
