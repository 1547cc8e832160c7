// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrSubmissionInvalid reports a form that cannot be packaged yet.
var ErrSubmissionInvalid = errors.New("submission invalid")

// ErrSubmissionFailed reports a sink delivery failure.
var ErrSubmissionFailed = errors.New("submission failed")

// Actor identifies the caller behind one mutation.
type Actor struct {
	ActorID   string `json:"actor_id,omitempty"`
	ActorType string `json:"actor_type,omitempty"`
}

// ActivityView is one entry of the rate table.
type ActivityView struct {
	Name       string   `json:"name"`
	Descriptor string   `json:"descriptor"`
	Rule       string   `json:"rule"`
	InputLabel string   `json:"input_label"`
	Cap        *float64 `json:"cap,omitempty"`
}

// RotationalView is one entry of the rotational duration table.
type RotationalView struct {
	Months  int     `json:"months"`
	Credits float64 `json:"credits"`
}

// QualificationView pairs a qualification with its goal.
type QualificationView struct {
	Qualification string  `json:"qualification"`
	Goal          float64 `json:"goal"`
}

// CatalogView lists every table that drives credit calculation.
type CatalogView struct {
	Activities     []ActivityView      `json:"activities"`
	Rotational     []RotationalView    `json:"rotational"`
	Qualifications []QualificationView `json:"qualifications"`
	DefaultGoal    float64             `json:"default_goal"`
}

// CreditQuote is the result of one stateless credit computation.
type CreditQuote struct {
	Activity   string  `json:"activity"`
	Value      float64 `json:"value"`
	Credits    float64 `json:"credits"`
	InputLabel string  `json:"input_label"`
	CapNote    string  `json:"cap_note,omitempty"`
}

// GoalView is the result of one goal lookup.
type GoalView struct {
	Qualification string  `json:"qualification"`
	Goal          float64 `json:"goal"`
}

// AttachmentView describes one attached file without its bytes.
type AttachmentView struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// RecordView is one activity record as seen by transports.
type RecordView struct {
	ID             string           `json:"id"`
	Activity       string           `json:"activity"`
	CompletionDate string           `json:"completion_date"`
	Value          float64          `json:"value"`
	Credits        float64          `json:"credits"`
	Attachments    []AttachmentView `json:"attachments"`
}

// ProfileView is the submitter block of the form.
type ProfileView struct {
	Name          string  `json:"name"`
	Period        string  `json:"period"`
	Qualification string  `json:"qualification"`
	Goal          float64 `json:"goal"`
}

// ProgressView summarizes accumulated credits against the goal.
type ProgressView struct {
	Total     float64 `json:"total"`
	Goal      float64 `json:"goal"`
	Percent   float64 `json:"percent"`
	Remaining float64 `json:"remaining"`
	Complete  bool    `json:"complete"`
}

// FormView is the full form state returned to HTTP and MCP callers.
type FormView struct {
	Profile       ProfileView  `json:"profile"`
	Records       []RecordView `json:"records"`
	Progress      ProgressView `json:"progress"`
	UpdatedAt     time.Time    `json:"updated_at"`
	UpdatedBy     string       `json:"updated_by,omitempty"`
	UpdatedByType string       `json:"updated_by_type,omitempty"`
}

// SetProfileRequest patches profile fields; nil fields stay unchanged.
type SetProfileRequest struct {
	Name          *string `json:"name,omitempty"`
	Period        *string `json:"period,omitempty"`
	Qualification *string `json:"qualification,omitempty"`
	Actor         Actor   `json:"actor,omitempty"`
}

// UpdateActivityRequest patches one record; nil fields stay unchanged.
type UpdateActivityRequest struct {
	ID             string   `json:"id,omitempty"`
	Activity       *string  `json:"activity,omitempty"`
	CompletionDate *string  `json:"completion_date,omitempty"`
	Value          *float64 `json:"value,omitempty"`
	Actor          Actor    `json:"actor,omitempty"`
}

// AttachFileRequest adds one base64-encoded file to a record.
type AttachFileRequest struct {
	RecordID    string `json:"record_id,omitempty"`
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	DataBase64  string `json:"data_base64"`
	Actor       Actor  `json:"actor,omitempty"`
}

// SubmitRequest selects the sink for one submission.
type SubmitRequest struct {
	Sink  string `json:"sink,omitempty"`
	Actor Actor  `json:"actor,omitempty"`
}

// SubmitResponse is the receipt of one delivered submission.
type SubmitResponse struct {
	Sink         string    `json:"sink"`
	Location     string    `json:"location"`
	Root         string    `json:"root"`
	Rows         int       `json:"rows"`
	Files        int       `json:"files"`
	TotalCredits float64   `json:"total_credits"`
	Complete     bool      `json:"complete"`
	Reset        bool      `json:"reset"`
	DeliveredAt  time.Time `json:"delivered_at"`
	Warning      string    `json:"warning,omitempty"`
}

// CatalogService answers stateless calculator questions.
type CatalogService interface {
	Catalog(context.Context) (CatalogView, error)
	ComputeCredits(context.Context, string, float64) (CreditQuote, error)
	ResolveGoal(context.Context, string) (GoalView, error)
}

// FormService reads and mutates the shared form.
type FormService interface {
	GetForm(context.Context) (FormView, error)
	GetProgress(context.Context) (ProgressView, error)
	SetProfile(context.Context, SetProfileRequest) (ProfileView, error)
	AddActivity(context.Context, Actor) (RecordView, error)
	UpdateActivity(context.Context, UpdateActivityRequest) (RecordView, error)
	RemoveActivity(context.Context, string, Actor) error
	AttachFile(context.Context, AttachFileRequest) (RecordView, error)
}

// SubmissionService delivers the form through a configured sink.
type SubmissionService interface {
	ListSinks(context.Context) ([]string, error)
	Submit(context.Context, SubmitRequest) (SubmitResponse, error)
}

// TrainingService is the full surface served over HTTP and MCP.
type TrainingService interface {
	CatalogService
	FormService
	SubmissionService
}
