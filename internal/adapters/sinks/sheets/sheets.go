// Package sheets posts submission packages to a spreadsheet web-hook.
package sheets

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hylla/ctrain/internal/submission"
)

// SinkName is the registered name of the sheets sink.
const SinkName = "sheets"

// defaultTimeout bounds one web-hook call.
const defaultTimeout = 30 * time.Second

// Config holds the web-hook endpoint.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Payload is the JSON body sent to the web-hook.
type Payload struct {
	Name          string           `json:"name"`
	Period        string           `json:"period"`
	Qualification string           `json:"qualification"`
	Goal          float64          `json:"goal"`
	TotalCredits  float64          `json:"total_credits"`
	Folder        string           `json:"folder"`
	Rows          []submission.Row `json:"rows"`
	Files         []PayloadFile    `json:"files"`
}

// PayloadFile is one base64-encoded attachment.
type PayloadFile struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	MimeType   string `json:"mime_type"`
	DataBase64 string `json:"data_base64"`
}

// webhookResponse is the optional JSON reply of the web-hook.
type webhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// Sink posts one request per submission.
type Sink struct {
	endpoint string
	client   *http.Client
	now      func() time.Time
}

// New validates cfg.
func New(cfg Config) (*Sink, error) {
	endpoint := strings.TrimSpace(cfg.WebhookURL)
	if endpoint == "" {
		return nil, errors.New("sheets webhook url is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid sheets webhook url %q", endpoint)
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Sink{endpoint: endpoint, client: client, now: time.Now}, nil
}

// Name returns the sink name.
func (s *Sink) Name() string {
	return SinkName
}

// Deliver posts the payload. Any non-2xx status is an error.
func (s *Sink) Deliver(ctx context.Context, pkg submission.Package) (submission.Receipt, error) {
	body, err := json.Marshal(NewPayload(pkg))
	if err != nil {
		return submission.Receipt{}, fmt.Errorf("encode sheets payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return submission.Receipt{}, fmt.Errorf("build sheets request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return submission.Receipt{}, fmt.Errorf("post sheets webhook: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return submission.Receipt{}, fmt.Errorf("sheets webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	location := s.endpoint
	var reply webhookResponse
	if len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &reply) == nil {
		if strings.EqualFold(reply.Status, "error") {
			return submission.Receipt{}, fmt.Errorf("sheets webhook rejected submission: %s", reply.Message)
		}
		if reply.URL != "" {
			location = reply.URL
		}
	}
	return submission.Receipt{
		Sink:        SinkName,
		Location:    location,
		Files:       len(pkg.Files),
		DeliveredAt: s.now().UTC(),
	}, nil
}

// NewPayload converts a package into the web-hook body.
func NewPayload(pkg submission.Package) Payload {
	p := Payload{
		Name:          pkg.Header.Name,
		Period:        pkg.Header.Period,
		Qualification: pkg.Header.Qualification,
		Goal:          pkg.Header.Goal,
		TotalCredits:  pkg.TotalCredits,
		Folder:        pkg.Root,
		Rows:          pkg.Rows,
		Files:         make([]PayloadFile, 0, len(pkg.Files)),
	}
	for _, f := range pkg.Files {
		p.Files = append(p.Files, PayloadFile{
			Path:       f.Path,
			Name:       f.Name,
			MimeType:   f.ContentType,
			DataBase64: base64.StdEncoding.EncodeToString(f.Data),
		})
	}
	return p
}
