// Package coolify provides the HTTP adapter for the Coolify platform API.
// It implements the domain.PlatformAPI interface. Transport failures and 5xx
// responses are retried with exponential backoff up to a bounded count; 4xx
// responses are never retried and surface immediately as authorization or
// configuration errors.
package coolify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/MyCarrier-DevOps/coolify-deploy/internal/domain"
)

const apiPrefix = "/api/v1"

// Retry policy bounds. The retryablehttp default policy retries connection
// failures, 429 and 5xx; it never retries other 4xx, which is exactly the
// contract the resolver needs.
const (
	defaultRetryMax     = 3
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 8 * time.Second
	defaultTimeout      = 30 * time.Second
)

// Logger defines the logging interface for the coolify adapter.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
}

// APIError is a non-retryable rejection from the platform.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// Client implements domain.PlatformAPI against a Coolify instance.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
	logger  Logger
}

// Option customises client construction.
type Option func(*Client)

// WithRetryMax overrides the bounded retry count.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		c.http.RetryMax = n
	}
}

// WithRetryWait overrides the backoff bounds.
func WithRetryWait(waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = waitMin
		c.http.RetryWaitMax = waitMax
	}
}

// NewClient creates a Client for the instance at baseURL authenticating with
// the given bearer token.
func NewClient(baseURL, token string, log Logger, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.RetryWaitMin = defaultRetryWaitMin
	rc.RetryWaitMax = defaultRetryWaitMax
	rc.HTTPClient.Timeout = defaultTimeout
	rc.Logger = nil

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    rc,
		logger:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues one authenticated request and decodes the JSON response into out.
// Exhausted retries map to domain.ErrRemoteUnavailable, 401/403 to
// domain.ErrRemoteAuth, and other 4xx to domain.ErrRemoteRejected wrapping an
// *APIError carrying the status.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug(ctx, "platform api request", map[string]any{
		"method": method,
		"path":   path,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrRemoteUnavailable, method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s %s returned %d", domain.ErrRemoteAuth, method, path, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: extractMessage(resp.Body)}
		return fmt.Errorf("%w: %s %s: %w", domain.ErrRemoteRejected, method, path, apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s %s: %w", method, path, err)
	}
	return nil
}

// extractMessage pulls the error message out of a JSON error payload, falling
// back to the raw body.
func extractMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(data))
}

type projectPayload struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

type serverPayload struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	IP   string `json:"ip"`
}

type applicationPayload struct {
	UUID          string `json:"uuid"`
	Name          string `json:"name"`
	ProjectUUID   string `json:"project_uuid"`
	GitRepository string `json:"git_repository"`
	GitBranch     string `json:"git_branch"`
}

// ListProjects returns all projects on the instance.
func (c *Client) ListProjects(ctx context.Context) ([]domain.RemoteProject, error) {
	var payload []projectPayload
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &payload); err != nil {
		return nil, err
	}

	projects := make([]domain.RemoteProject, 0, len(payload))
	for _, p := range payload {
		projects = append(projects, domain.RemoteProject{UUID: p.UUID, Name: p.Name})
	}
	return projects, nil
}

// CreateProject creates a new project.
func (c *Client) CreateProject(ctx context.Context, name, description string) (*domain.RemoteProject, error) {
	body := map[string]string{
		"name":        name,
		"description": description,
	}
	var payload projectPayload
	if err := c.do(ctx, http.MethodPost, "/projects", body, &payload); err != nil {
		return nil, err
	}
	return &domain.RemoteProject{UUID: payload.UUID, Name: name}, nil
}

// ListServers returns the servers registered on the instance.
func (c *Client) ListServers(ctx context.Context) ([]domain.RemoteServer, error) {
	var payload []serverPayload
	if err := c.do(ctx, http.MethodGet, "/servers", nil, &payload); err != nil {
		return nil, err
	}

	servers := make([]domain.RemoteServer, 0, len(payload))
	for _, s := range payload {
		servers = append(servers, domain.RemoteServer{UUID: s.UUID, Name: s.Name, IP: s.IP})
	}
	return servers, nil
}

// ListApplications returns the applications belonging to the given project.
func (c *Client) ListApplications(ctx context.Context, projectUUID string) ([]domain.RemoteApplication, error) {
	var payload []applicationPayload
	if err := c.do(ctx, http.MethodGet, "/applications", nil, &payload); err != nil {
		return nil, err
	}

	var apps []domain.RemoteApplication
	for _, a := range payload {
		if a.ProjectUUID != projectUUID {
			continue
		}
		apps = append(apps, domain.RemoteApplication{
			UUID:        a.UUID,
			ProjectUUID: a.ProjectUUID,
			Name:        a.Name,
			GitURL:      a.GitRepository,
			Branch:      a.GitBranch,
		})
	}
	return apps, nil
}

// CreateApplication creates a public-repository application under a project
// with the dockerfile build pack.
func (c *Client) CreateApplication(ctx context.Context, req domain.CreateApplicationRequest) (*domain.RemoteApplication, error) {
	body := map[string]any{
		"project_uuid":         req.ProjectUUID,
		"server_uuid":          req.ServerUUID,
		"environment_name":     req.EnvironmentName,
		"destination_uuid":     req.ServerUUID,
		"git_repository":       req.GitRepository,
		"git_branch":           req.GitBranch,
		"build_pack":           "dockerfile",
		"ports_exposes":        strconv.Itoa(req.Port),
		"name":                 req.Name,
		"description":          req.Description,
		"health_check_enabled": true,
		"health_check_path":    "/",
	}

	var payload applicationPayload
	if err := c.do(ctx, http.MethodPost, "/applications/public", body, &payload); err != nil {
		return nil, err
	}
	if payload.UUID == "" {
		return nil, fmt.Errorf("%w: application created but no uuid returned", domain.ErrRemoteRejected)
	}

	return &domain.RemoteApplication{
		UUID:        payload.UUID,
		ProjectUUID: req.ProjectUUID,
		Name:        req.Name,
		GitURL:      req.GitRepository,
		Branch:      req.GitBranch,
	}, nil
}

// Deploy triggers a deployment of the application. A 404 means the handle is
// stale: the application was deleted remotely since resolution.
func (c *Client) Deploy(ctx context.Context, applicationUUID string) (*domain.Deployment, error) {
	var payload struct {
		Deployments []struct {
			DeploymentUUID string `json:"deployment_uuid"`
		} `json:"deployments"`
	}

	err := c.do(ctx, http.MethodGet, "/deploy?uuid="+applicationUUID, nil, &payload)
	if err != nil {
		if apiErr := asAPIError(err); apiErr != nil && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrStaleApplication, applicationUUID)
		}
		return nil, err
	}

	deployment := &domain.Deployment{}
	if len(payload.Deployments) > 0 {
		deployment.UUID = payload.Deployments[0].DeploymentUUID
	}
	if deployment.UUID == "" {
		c.logger.Warn(ctx, "deploy accepted but no deployment uuid returned", map[string]any{
			"application_uuid": applicationUUID,
		})
	}
	return deployment, nil
}

// DashboardURL returns the instance's dashboard location for an application.
func (c *Client) DashboardURL(applicationUUID string) string {
	return c.baseURL + "/project/" + applicationUUID
}

func asAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
