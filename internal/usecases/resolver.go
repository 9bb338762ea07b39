// Package usecases contains the application business logic.
// This package orchestrates domain entities and interfaces to fulfill use cases.
package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

// Logger defines the logging interface required by the use cases.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, err error, fields map[string]any)
}

// TopologyResolver implements domain.TopologyResolver over a PlatformAPI.
//
// The platform is the only durable source of truth and may be edited
// out-of-band through its dashboard, so every step is list-match-create
// rather than create-or-error. A run interrupted between project creation and
// application creation resumes cleanly: the re-run finds the project by name
// and proceeds to the application step.
type TopologyResolver struct {
	api    domain.PlatformAPI
	logger Logger
}

// NewTopologyResolver creates a new TopologyResolver.
func NewTopologyResolver(api domain.PlatformAPI, log Logger) *TopologyResolver {
	return &TopologyResolver{api: api, logger: log}
}

// Resolve returns the application for the given git source, creating the
// project and/or application if missing. Matching keys are stable: project
// by derived name, application by git url + branch.
func (r *TopologyResolver) Resolve(
	ctx context.Context,
	git *domain.GitContext,
	project *domain.ProjectContext,
	port int,
) (*domain.RemoteApplication, error) {
	name := deriveProjectName(git.Repository)

	remoteProject, err := r.resolveProject(ctx, name, project.AppName)
	if err != nil {
		return nil, err
	}

	branch := git.Branch
	if branch == "" {
		branch = domain.DefaultBranch
	}

	apps, err := r.api.ListApplications(ctx, remoteProject.UUID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	for i := range apps {
		if apps[i].GitURL == git.RemoteURL && apps[i].Branch == branch {
			r.logger.Info(ctx, "reusing existing application", map[string]any{
				"application_uuid": apps[i].UUID,
				"git_url":          apps[i].GitURL,
				"branch":           apps[i].Branch,
			})
			return &apps[i], nil
		}
	}

	servers, err := r.api.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	if len(servers) == 0 {
		return nil, domain.ErrNoServers
	}
	server := servers[0]

	r.logger.Info(ctx, "creating application", map[string]any{
		"project_uuid": remoteProject.UUID,
		"server":       server.Name,
		"git_url":      git.RemoteURL,
		"branch":       branch,
	})

	app, err := r.api.CreateApplication(ctx, domain.CreateApplicationRequest{
		ProjectUUID:     remoteProject.UUID,
		ServerUUID:      server.UUID,
		EnvironmentName: domain.DefaultEnvironment,
		Name:            name,
		Description:     "Django application: " + project.AppName,
		GitRepository:   git.RemoteURL,
		GitBranch:       branch,
		Port:            port,
	})
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

// resolveProject reuses the project matching the derived name, creating it
// only when no match exists.
func (r *TopologyResolver) resolveProject(ctx context.Context, name, appName string) (*domain.RemoteProject, error) {
	projects, err := r.api.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	for i := range projects {
		if strings.EqualFold(projects[i].Name, name) {
			r.logger.Info(ctx, "reusing existing project", map[string]any{
				"project_uuid": projects[i].UUID,
				"name":         projects[i].Name,
			})
			return &projects[i], nil
		}
	}

	r.logger.Info(ctx, "creating project", map[string]any{"name": name})
	project, err := r.api.CreateProject(ctx, name, "Django project: "+appName)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// deriveProjectName turns an owner/repo identifier into a platform project
// name: the repo part, lowercased, with underscores replaced.
func deriveProjectName(repository string) string {
	name := repository
	if idx := strings.LastIndex(repository, "/"); idx >= 0 {
		name = repository[idx+1:]
	}
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

// Trigger implements domain.DeployTrigger over a PlatformAPI. It is
// fire-and-report: it never waits for the remote build pipeline.
type Trigger struct {
	api    domain.PlatformAPI
	logger Logger
}

// NewTrigger creates a new Trigger.
func NewTrigger(api domain.PlatformAPI, log Logger) *Trigger {
	return &Trigger{api: api, logger: log}
}

// Trigger issues the deploy call for the application. A stale handle (the
// application was deleted remotely between resolution and trigger) surfaces
// as domain.ErrStaleApplication; the operator re-runs from resolution.
func (t *Trigger) Trigger(ctx context.Context, app *domain.RemoteApplication) (*domain.Deployment, error) {
	deployment, err := t.api.Deploy(ctx, app.UUID)
	if err != nil {
		return nil, fmt.Errorf("trigger deployment: %w", err)
	}

	t.logger.Info(ctx, "deployment accepted", map[string]any{
		"application_uuid": app.UUID,
		"deployment_uuid":  deployment.UUID,
		"dashboard":        t.api.DashboardURL(app.UUID),
	})
	return deployment, nil
}
