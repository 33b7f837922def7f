package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"go.uber.org/zap"

	"github.com/noah-isme/room-usage-monitor/internal/models"
)

// GitHubStatusConfig addresses the file that receives the report.
type GitHubStatusConfig struct {
	Token         string
	Owner         string
	Repo          string
	Branch        string
	FilePath      string
	CommitMessage string
	BaseURL       string
}

// GitHubStatusRepository commits the report through the repository
// contents API.
type GitHubStatusRepository struct {
	client *github.Client
	cfg    GitHubStatusConfig
	logger *zap.Logger
}

// NewGitHubStatusRepository builds the publisher. httpClient may be nil.
func NewGitHubStatusRepository(cfg GitHubStatusConfig, httpClient *http.Client, logger *zap.Logger) (*GitHubStatusRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.CommitMessage == "" {
		cfg.CommitMessage = "Update classroom status data"
	}
	client := github.NewClient(httpClient).WithAuthToken(cfg.Token)
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse github api url: %w", err)
		}
		client.BaseURL = u
	}
	return &GitHubStatusRepository{client: client, cfg: cfg, logger: logger}, nil
}

// Name identifies the publisher in logs and metrics.
func (r *GitHubStatusRepository) Name() string { return "github" }

// Publish creates the file or updates it in place when it already exists.
func (r *GitHubStatusRepository) Publish(ctx context.Context, _ models.StatusReport, payload []byte) error {
	sha := r.currentSHA(ctx)

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(r.cfg.CommitMessage),
		Content: payload,
		Branch:  github.String(r.cfg.Branch),
		SHA:     sha,
	}

	var err error
	if sha == nil {
		_, _, err = r.client.Repositories.CreateFile(ctx, r.cfg.Owner, r.cfg.Repo, r.cfg.FilePath, opts)
	} else {
		_, _, err = r.client.Repositories.UpdateFile(ctx, r.cfg.Owner, r.cfg.Repo, r.cfg.FilePath, opts)
	}
	if err != nil {
		return fmt.Errorf("commit %s to %s/%s: %w", r.cfg.FilePath, r.cfg.Owner, r.cfg.Repo, err)
	}
	return nil
}

// currentSHA returns the blob SHA of the existing file, or nil when the file
// does not exist or the lookup fails.
func (r *GitHubStatusRepository) currentSHA(ctx context.Context) *string {
	file, _, resp, err := r.client.Repositories.GetContents(ctx, r.cfg.Owner, r.cfg.Repo, r.cfg.FilePath,
		&github.RepositoryContentGetOptions{Ref: r.cfg.Branch})
	if err != nil {
		var ghErr *github.ErrorResponse
		if resp != nil && resp.StatusCode == http.StatusNotFound && errors.As(err, &ghErr) {
			return nil
		}
		r.logger.Warn("existing status file lookup failed", zap.String("path", r.cfg.FilePath), zap.Error(err))
		return nil
	}
	if file == nil {
		return nil
	}
	return file.SHA
}
