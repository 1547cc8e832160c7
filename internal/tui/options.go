package tui

import (
	"strings"

	"github.com/atotto/clipboard"
)

type Option func(*Model)

// ClipboardFunc copies text to the system clipboard.
type ClipboardFunc func(string) error

func DefaultClipboard() ClipboardFunc {
	return clipboard.WriteAll
}

func WithDefaultSink(name string) Option {
	return func(m *Model) {
		m.defaultSink = strings.TrimSpace(name)
	}
}

func WithClipboard(fn ClipboardFunc) Option {
	return func(m *Model) {
		if fn != nil {
			m.copyText = fn
		}
	}
}

func WithConfirmSubmit(confirm bool) Option {
	return func(m *Model) {
		m.confirmSubmit = confirm
	}
}
