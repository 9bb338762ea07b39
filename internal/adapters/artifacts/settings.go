package artifacts

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/moby/sys/atomicwriter"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

// settingsBlock is one marker-guarded insertion into settings.py. Detection
// is "marker substring present", not exact block match, so an operator who
// edits the body after insertion never has the edit reverted.
type settingsBlock struct {
	marker string
	body   string
}

// settingsBlocks are appended to the settings module in order. Each block is
// self-contained Python that keeps a safe default when its environment
// variable is unset.
var settingsBlocks = []settingsBlock{
	{
		marker: "# coolify: allowed hosts",
		body: `# coolify: allowed hosts
import os
ALLOWED_HOSTS = os.environ.get("ALLOWED_HOSTS", "*").split(",")
`,
	},
	{
		marker: "# coolify: static files",
		body: `# coolify: static files
STATIC_URL = "/static/"
STATIC_ROOT = os.path.join(BASE_DIR, "staticfiles")
MIDDLEWARE.insert(1, "whitenoise.middleware.WhiteNoiseMiddleware")
STATICFILES_STORAGE = "whitenoise.storage.CompressedManifestStaticFilesStorage"
`,
	},
	{
		marker: "# coolify: database",
		body: `# coolify: database
import dj_database_url
if "DATABASE_URL" in os.environ:
    DATABASES["default"] = dj_database_url.parse(
        os.environ["DATABASE_URL"], conn_max_age=600
    )
`,
	},
}

// patchSettings appends any settings block whose marker is absent. Blocks
// already present are left untouched past their marker. Requires a located
// settings module to anchor the insertion.
func (g *Generator) patchSettings(ctx context.Context, project *domain.ProjectContext) error {
	if project.SettingsPath == "" {
		return fmt.Errorf("%w: under %s", domain.ErrSettingsNotFound, project.Root)
	}

	data, err := os.ReadFile(project.SettingsPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrArtifactWrite, project.SettingsPath, err)
	}

	content := string(data)
	var appended int
	for _, block := range settingsBlocks {
		if strings.Contains(content, block.marker) {
			continue
		}
		if !strings.HasSuffix(content, "\n") && content != "" {
			content += "\n"
		}
		content += "\n" + block.body
		appended++
	}

	if appended == 0 {
		g.logger.Debug(ctx, "settings module already has all production blocks", map[string]any{
			"path": project.SettingsPath,
		})
		return nil
	}

	if err := atomicwriter.WriteFile(project.SettingsPath, []byte(content), artifactMode); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrArtifactWrite, project.SettingsPath, err)
	}

	g.logger.Info(ctx, "patched settings module", map[string]any{
		"path":   project.SettingsPath,
		"blocks": appended,
	})
	return nil
}
