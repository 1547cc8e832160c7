// Package github uploads submission packages through the GitHub contents API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
	"github.com/hylla/ctrain/internal/submission"
)

// SinkName is the registered name of the GitHub sink.
const SinkName = "github"

// Config holds repository coordinates and credentials.
type Config struct {
	Owner      string
	Repo       string
	Branch     string
	PathPrefix string
	Token      string
	APIBaseURL string
	HTTPClient *http.Client
}

// Sink creates one commit per package file.
type Sink struct {
	client *gh.Client
	cfg    Config
	now    func() time.Time
}

// New validates cfg and builds an authenticated client.
func New(cfg Config) (*Sink, error) {
	cfg.Owner = strings.TrimSpace(cfg.Owner)
	cfg.Repo = strings.TrimSpace(cfg.Repo)
	cfg.Branch = strings.TrimSpace(cfg.Branch)
	cfg.PathPrefix = strings.Trim(strings.TrimSpace(cfg.PathPrefix), "/")
	cfg.Token = strings.TrimSpace(cfg.Token)
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.New("github owner and repo are required")
	}
	if cfg.Token == "" {
		return nil, errors.New("github token is required")
	}

	client := gh.NewClient(cfg.HTTPClient).WithAuthToken(cfg.Token)
	if base := strings.TrimSpace(cfg.APIBaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse github api base url: %w", err)
		}
		client.BaseURL = parsed
	}
	return &Sink{client: client, cfg: cfg, now: time.Now}, nil
}

// Name returns the sink name.
func (s *Sink) Name() string {
	return SinkName
}

// Deliver uploads the details table and then each attachment. Files already
// created stay in the repository if a later upload fails.
func (s *Sink) Deliver(ctx context.Context, pkg submission.Package) (submission.Receipt, error) {
	dir := path.Join(s.cfg.PathPrefix, pkg.Root)
	csvPath := path.Join(dir, submission.CSVFileName)
	if err := s.put(ctx, csvPath, pkg.CSV, fmt.Sprintf("Add training submission for %s", pkg.Header.Name)); err != nil {
		return submission.Receipt{}, err
	}
	for _, f := range pkg.Files {
		if err := s.put(ctx, path.Join(dir, f.Path), f.Data, fmt.Sprintf("Add certificate %s", f.Name)); err != nil {
			return submission.Receipt{}, err
		}
	}
	return submission.Receipt{
		Sink:        SinkName,
		Location:    fmt.Sprintf("%s/%s:%s", s.cfg.Owner, s.cfg.Repo, dir),
		Files:       len(pkg.Files) + 1,
		DeliveredAt: s.now().UTC(),
	}, nil
}

// put creates one file.
func (s *Sink) put(ctx context.Context, filePath string, content []byte, message string) error {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: content,
	}
	if s.cfg.Branch != "" {
		opts.Branch = gh.Ptr(s.cfg.Branch)
	}
	_, resp, err := s.client.Repositories.CreateFile(ctx, s.cfg.Owner, s.cfg.Repo, filePath, opts)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("github upload %s: status %d: %w", filePath, resp.StatusCode, err)
		}
		return fmt.Errorf("github upload %s: %w", filePath, err)
	}
	return nil
}
