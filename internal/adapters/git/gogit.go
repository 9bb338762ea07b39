// Package git provides adapters for interacting with local Git repositories.
// This package implements the domain.LocalGitRepository interface using go-git/v5.
package git

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

// Logger defines the logging interface for the git adapter.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
}

// GoGitRepository implements domain.LocalGitRepository using go-git/v5.
// It reads the origin remote and current branch; it never commits or pushes.
type GoGitRepository struct {
	repo   *git.Repository
	path   string
	logger Logger
}

// NewGoGitRepository creates a new GoGitRepository for the given path.
// Returns domain.ErrRepositoryNotFound if the path is not a valid Git repository.
func NewGoGitRepository(path string, log Logger) (*GoGitRepository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}

	return &GoGitRepository{
		repo:   repo,
		path:   path,
		logger: log,
	}, nil
}

// GetGitContext extracts the repository name, HTTPS clone URL and current
// branch from the repository. Returns domain.ErrNoRemoteOrigin if no origin
// remote is configured. Logs a warning if HEAD is detached but continues with
// an empty branch name.
func (r *GoGitRepository) GetGitContext(ctx context.Context) (*domain.GitContext, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	gitCtx := &domain.GitContext{
		IsDetached: !head.Name().IsBranch(),
	}

	if head.Name().IsBranch() {
		gitCtx.Branch = head.Name().Short()
	} else {
		// HEAD is detached - warn but continue
		r.logger.Warn(ctx, "HEAD is detached; branch name will be empty", map[string]any{
			"head_sha": head.Hash().String(),
			"path":     r.path,
		})
	}

	remote, err := r.repo.Remote("origin")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get origin remote: %w", domain.ErrNoRemoteOrigin, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: origin remote has no URLs configured", domain.ErrNoRemoteOrigin)
	}

	repoName, err := parseRepoFromURL(urls[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse URL: %w", domain.ErrInvalidRemoteURL, err)
	}
	gitCtx.Repository = repoName
	gitCtx.RemoteURL = NormalizeRemoteURL(urls[0])

	r.logger.Debug(ctx, "extracted git context", map[string]any{
		"branch":      gitCtx.Branch,
		"repository":  gitCtx.Repository,
		"remote_url":  gitCtx.RemoteURL,
		"is_detached": gitCtx.IsDetached,
	})

	return gitCtx, nil
}

// Close releases any resources held by the repository.
// For go-git, this is a no-op as the repository doesn't hold persistent resources.
func (r *GoGitRepository) Close() error {
	return nil
}

// Regular expressions for parsing Git remote URLs.
var (
	// httpsURLPattern matches HTTPS URLs like:
	// https://github.com/owner/repo.git
	// https://github.com/owner/repo
	httpsURLPattern = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+?)(?:\.git)?$`)

	// sshURLPattern matches SSH URLs like:
	// git@github.com:owner/repo.git
	// git@github.com:owner/repo
	sshURLPattern = regexp.MustCompile(`^git@([^:]+):([^/]+)/([^/]+?)(?:\.git)?$`)
)

// parseRepoFromURL extracts owner/repo from a Git remote URL.
// Supports both HTTPS and SSH formats:
//   - https://github.com/owner/repo.git -> owner/repo
//   - git@github.com:owner/repo.git -> owner/repo
func parseRepoFromURL(url string) (string, error) {
	url = strings.TrimSpace(url)

	if matches := httpsURLPattern.FindStringSubmatch(url); len(matches) == 3 {
		return matches[1] + "/" + matches[2], nil
	}

	if matches := sshURLPattern.FindStringSubmatch(url); len(matches) == 4 {
		return matches[2] + "/" + matches[3], nil
	}

	return "", fmt.Errorf("unrecognized URL format: %s", url)
}

// NormalizeRemoteURL converts a remote URL to the HTTPS form the platform can
// fetch from. SSH URLs become https://host/owner/repo; trailing .git is
// stripped. Unrecognized URLs are returned trimmed but otherwise unchanged.
func NormalizeRemoteURL(url string) string {
	url = strings.TrimSpace(url)

	if matches := sshURLPattern.FindStringSubmatch(url); len(matches) == 4 {
		return "https://" + matches[1] + "/" + matches[2] + "/" + matches[3]
	}

	return strings.TrimSuffix(url, ".git")
}
