package app

import (
	"context"

	"github.com/hylla/ctrain/internal/submission"
)

// Repository persists the form state. LoadForm returns ErrNotFound when nothing is stored.
type Repository interface {
	LoadForm(context.Context) (FormState, error)
	SaveForm(context.Context, FormState) error
}

// Sink delivers a finished submission package somewhere.
type Sink interface {
	Name() string
	Deliver(context.Context, submission.Package) (submission.Receipt, error)
}
