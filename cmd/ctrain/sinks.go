package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/ctrain/internal/adapters/sinks/archive"
	"github.com/hylla/ctrain/internal/adapters/sinks/github"
	"github.com/hylla/ctrain/internal/adapters/sinks/kafka"
	"github.com/hylla/ctrain/internal/adapters/sinks/sheets"
	"github.com/hylla/ctrain/internal/app"
	"github.com/hylla/ctrain/internal/config"
	"github.com/hylla/ctrain/internal/observability"
)

// sinkFactory builds the enabled submission sinks.
var sinkFactory = buildSinks

// buildSinks constructs every enabled sink, wraps it with metrics, and orders the configured default first.
func buildSinks(cfg config.Config, secrets config.Secrets) ([]app.Sink, func() error, error) {
	var (
		sinks   []app.Sink
		closers []func() error
	)
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(name string, err error) ([]app.Sink, func() error, error) {
		_ = closeAll()
		return nil, nil, fmt.Errorf("%s sink: %w", name, err)
	}

	if cfg.Sinks.Archive.Enabled {
		sink, err := archive.New(cfg.Sinks.Archive.OutDir)
		if err != nil {
			return fail(archive.SinkName, err)
		}
		sinks = append(sinks, sink)
	}
	if gh := cfg.Sinks.GitHub; gh.Enabled {
		sink, err := github.New(github.Config{
			Owner:      gh.Owner,
			Repo:       gh.Repo,
			Branch:     gh.Branch,
			PathPrefix: gh.PathPrefix,
			Token:      secrets.GitHubToken,
			APIBaseURL: gh.APIBaseURL,
		})
		if err != nil {
			return fail(github.SinkName, err)
		}
		sinks = append(sinks, sink)
	}
	if sh := cfg.Sinks.Sheets; sh.Enabled {
		timeout, err := cfg.SheetsTimeout()
		if err != nil {
			return fail(sheets.SinkName, err)
		}
		sink, err := sheets.New(sheets.Config{
			WebhookURL: firstNonEmpty(secrets.SheetsWebhookURL, sh.WebhookURL),
			Timeout:    timeout,
		})
		if err != nil {
			return fail(sheets.SinkName, err)
		}
		sinks = append(sinks, sink)
	}
	if kc := cfg.Sinks.Kafka; kc.Enabled {
		sink, err := kafka.New(kafka.Config{Brokers: kc.Brokers, Topic: kc.Topic})
		if err != nil {
			return fail(kafka.SinkName, err)
		}
		sinks = append(sinks, sink)
		closers = append(closers, sink.Close)
	}

	ordered := make([]app.Sink, 0, len(sinks))
	defaultName := strings.ToLower(strings.TrimSpace(cfg.Sinks.Default))
	for _, sink := range sinks {
		if sink.Name() == defaultName {
			ordered = append(ordered, observability.Instrument(sink))
		}
	}
	for _, sink := range sinks {
		if sink.Name() != defaultName {
			ordered = append(ordered, observability.Instrument(sink))
		}
	}
	return ordered, closeAll, nil
}
