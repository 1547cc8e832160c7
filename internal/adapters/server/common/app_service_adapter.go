package common

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/ctrain/internal/app"
	"github.com/hylla/ctrain/internal/domain"
	"github.com/hylla/ctrain/internal/submission"
)

// AppServiceAdapter maps transport contracts onto app.Service.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

var _ TrainingService = (*AppServiceAdapter)(nil)

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	return nil
}

// Catalog returns the rate, rotational and goal tables.
func (a *AppServiceAdapter) Catalog(_ context.Context) (CatalogView, error) {
	if err := a.ready(); err != nil {
		return CatalogView{}, err
	}
	catalog := a.service.Catalog()
	out := CatalogView{
		Activities:     make([]ActivityView, 0, len(catalog.Activities)),
		Rotational:     make([]RotationalView, 0, len(catalog.Rotational)),
		Qualifications: make([]QualificationView, 0, len(catalog.Qualifications)),
		DefaultGoal:    catalog.DefaultGoal,
	}
	for _, def := range catalog.Activities {
		view := ActivityView{
			Name:       def.Name,
			Descriptor: def.Descriptor,
			Rule:       def.Rule.String(),
			InputLabel: def.Rule.InputLabel(),
		}
		if def.HasCap {
			capValue := def.Cap
			view.Cap = &capValue
		}
		out.Activities = append(out.Activities, view)
	}
	for _, award := range catalog.Rotational {
		out.Rotational = append(out.Rotational, RotationalView{Months: award.Months, Credits: award.Credits})
	}
	for _, q := range catalog.Qualifications {
		out.Qualifications = append(out.Qualifications, QualificationView{Qualification: q.Qualification, Goal: q.Goal})
	}
	return out, nil
}

// ComputeCredits evaluates one activity value without touching the form.
func (a *AppServiceAdapter) ComputeCredits(_ context.Context, activity string, value float64) (CreditQuote, error) {
	if err := a.ready(); err != nil {
		return CreditQuote{}, err
	}
	activity = strings.TrimSpace(activity)
	if activity == "" {
		return CreditQuote{}, fmt.Errorf("activity is required: %w", ErrInvalidRequest)
	}
	label, capNote := a.service.InputHint(activity)
	return CreditQuote{
		Activity:   activity,
		Value:      value,
		Credits:    a.service.ComputeCredits(activity, value),
		InputLabel: label,
		CapNote:    capNote,
	}, nil
}

// ResolveGoal looks up the goal for one qualification.
func (a *AppServiceAdapter) ResolveGoal(_ context.Context, qualification string) (GoalView, error) {
	if err := a.ready(); err != nil {
		return GoalView{}, err
	}
	qualification = strings.TrimSpace(qualification)
	return GoalView{
		Qualification: qualification,
		Goal:          a.service.ResolveGoal(qualification),
	}, nil
}

// GetForm returns the current form and progress.
func (a *AppServiceAdapter) GetForm(_ context.Context) (FormView, error) {
	if err := a.ready(); err != nil {
		return FormView{}, err
	}
	form := a.service.Form()
	out := FormView{
		Profile:       a.profileView(form.Profile),
		Records:       make([]RecordView, 0, len(form.Records)),
		Progress:      progressView(a.service.Progress()),
		UpdatedAt:     form.UpdatedAt,
		UpdatedBy:     form.UpdatedBy,
		UpdatedByType: string(form.UpdatedByType),
	}
	for _, rec := range form.Records {
		out.Records = append(out.Records, recordView(rec))
	}
	return out, nil
}

// GetProgress returns the credit total against the goal.
func (a *AppServiceAdapter) GetProgress(_ context.Context) (ProgressView, error) {
	if err := a.ready(); err != nil {
		return ProgressView{}, err
	}
	return progressView(a.service.Progress()), nil
}

// SetProfile patches the submitter fields.
func (a *AppServiceAdapter) SetProfile(ctx context.Context, in SetProfileRequest) (ProfileView, error) {
	if err := a.ready(); err != nil {
		return ProfileView{}, err
	}
	ctx, err := withActorContext(ctx, in.Actor)
	if err != nil {
		return ProfileView{}, err
	}
	profile, err := a.service.SetProfile(ctx, app.ProfilePatch{
		Name:          in.Name,
		Period:        in.Period,
		Qualification: in.Qualification,
	})
	if err != nil {
		return ProfileView{}, mapAppError("set profile", err)
	}
	return a.profileView(profile), nil
}

// AddActivity appends one blank record.
func (a *AppServiceAdapter) AddActivity(ctx context.Context, actor Actor) (RecordView, error) {
	if err := a.ready(); err != nil {
		return RecordView{}, err
	}
	ctx, err := withActorContext(ctx, actor)
	if err != nil {
		return RecordView{}, err
	}
	rec, err := a.service.AddActivity(ctx)
	if err != nil {
		return RecordView{}, mapAppError("add activity", err)
	}
	return recordView(rec), nil
}

// UpdateActivity patches one record and returns it with recomputed credits.
func (a *AppServiceAdapter) UpdateActivity(ctx context.Context, in UpdateActivityRequest) (RecordView, error) {
	if err := a.ready(); err != nil {
		return RecordView{}, err
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return RecordView{}, fmt.Errorf("id is required: %w", ErrInvalidRequest)
	}
	patch := app.RecordPatch{
		ActivityName:   in.Activity,
		CompletionDate: in.CompletionDate,
		RawValue:       in.Value,
	}
	if patch.Empty() {
		return RecordView{}, fmt.Errorf("no fields to update: %w", ErrInvalidRequest)
	}
	ctx, err := withActorContext(ctx, in.Actor)
	if err != nil {
		return RecordView{}, err
	}
	rec, err := a.service.UpdateActivity(ctx, id, patch)
	if err != nil {
		return RecordView{}, mapAppError("update activity", err)
	}
	return recordView(rec), nil
}

// RemoveActivity deletes one record.
func (a *AppServiceAdapter) RemoveActivity(ctx context.Context, id string, actor Actor) error {
	if err := a.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("id is required: %w", ErrInvalidRequest)
	}
	ctx, err := withActorContext(ctx, actor)
	if err != nil {
		return err
	}
	if err := a.service.RemoveActivity(ctx, id); err != nil {
		return mapAppError("remove activity", err)
	}
	return nil
}

// AttachFile decodes and attaches one file to a record.
func (a *AppServiceAdapter) AttachFile(ctx context.Context, in AttachFileRequest) (RecordView, error) {
	if err := a.ready(); err != nil {
		return RecordView{}, err
	}
	id := strings.TrimSpace(in.RecordID)
	if id == "" {
		return RecordView{}, fmt.Errorf("record_id is required: %w", ErrInvalidRequest)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(in.DataBase64))
	if err != nil {
		return RecordView{}, fmt.Errorf("decode data_base64: %w", errors.Join(ErrInvalidRequest, err))
	}
	attachment, err := domain.NewAttachment(in.Name, in.ContentType, data)
	if err != nil {
		return RecordView{}, mapAppError("attach file", err)
	}
	ctx, err = withActorContext(ctx, in.Actor)
	if err != nil {
		return RecordView{}, err
	}
	rec, err := a.service.AttachFile(ctx, id, attachment)
	if err != nil {
		return RecordView{}, mapAppError("attach file", err)
	}
	return recordView(rec), nil
}

// ListSinks returns configured sink names; the first one is the default.
func (a *AppServiceAdapter) ListSinks(_ context.Context) ([]string, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	return a.service.ListSinks(), nil
}

// Submit packages the form and delivers it through the requested sink.
func (a *AppServiceAdapter) Submit(ctx context.Context, in SubmitRequest) (SubmitResponse, error) {
	if err := a.ready(); err != nil {
		return SubmitResponse{}, err
	}
	ctx, err := withActorContext(ctx, in.Actor)
	if err != nil {
		return SubmitResponse{}, err
	}
	result, err := a.service.Submit(ctx, in.Sink)
	var subErr *app.SubmissionError
	if errors.As(err, &subErr) {
		return SubmitResponse{}, mapAppError("submit", err)
	}
	out := SubmitResponse{
		Sink:         result.Receipt.Sink,
		Location:     result.Receipt.Location,
		Root:         result.Root,
		Rows:         result.Rows,
		Files:        result.Files,
		TotalCredits: result.TotalCredits,
		Complete:     result.Complete,
		Reset:        result.Reset,
		DeliveredAt:  result.Receipt.DeliveredAt,
	}
	if err != nil {
		// Delivered, but the follow-up reset failed.
		out.Warning = err.Error()
	}
	return out, nil
}

// UserMessage returns the submitter-facing text carried by err, if any.
func UserMessage(err error) string {
	var subErr *app.SubmissionError
	if errors.As(err, &subErr) {
		return subErr.UserMessage()
	}
	return ""
}

func (a *AppServiceAdapter) profileView(p domain.Profile) ProfileView {
	return ProfileView{
		Name:          p.Name,
		Period:        p.Period,
		Qualification: p.Qualification,
		Goal:          a.service.ResolveGoal(p.Qualification),
	}
}

func progressView(p domain.Progress) ProgressView {
	return ProgressView{
		Total:     p.Total,
		Goal:      p.Goal,
		Percent:   p.Percent,
		Remaining: p.Remaining(),
		Complete:  p.Complete,
	}
}

func recordView(rec domain.ActivityRecord) RecordView {
	out := RecordView{
		ID:             rec.ID,
		Activity:       rec.ActivityName,
		CompletionDate: rec.CompletionDate,
		Value:          rec.RawValue,
		Credits:        rec.Credits,
		Attachments:    make([]AttachmentView, 0, len(rec.Attachments)),
	}
	for _, att := range rec.Attachments {
		out.Attachments = append(out.Attachments, AttachmentView{
			Name:        att.Name,
			ContentType: att.ContentType,
			Size:        len(att.Data),
		})
	}
	return out
}

// withActorContext attaches caller attribution when the transport supplied one.
func withActorContext(ctx context.Context, actor Actor) (context.Context, error) {
	actorID := strings.TrimSpace(actor.ActorID)
	actorType := strings.TrimSpace(strings.ToLower(actor.ActorType))
	if actorID == "" {
		if actorType != "" {
			return ctx, fmt.Errorf("actor_id is required with actor_type: %w", ErrInvalidRequest)
		}
		return ctx, nil
	}
	switch app.ActorType(actorType) {
	case "", app.ActorTypeUser, app.ActorTypeAgent, app.ActorTypeSystem:
	default:
		return ctx, fmt.Errorf("unsupported actor_type %q: %w", actor.ActorType, ErrInvalidRequest)
	}
	return app.WithMutationActor(ctx, app.MutationActor{
		ActorID:   actorID,
		ActorType: app.ActorType(actorType),
	}), nil
}

// mapAppError maps app/domain errors into transport-layer error sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrUnknownSink),
		errors.Is(err, app.ErrInvalidSnapshot),
		errors.Is(err, domain.ErrInvalidAttachment),
		errors.Is(err, domain.ErrInvalidID):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	case errors.Is(err, submission.ErrMissingProfile),
		errors.Is(err, submission.ErrNoActivities):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrSubmissionInvalid, err))
	}
	var subErr *app.SubmissionError
	if errors.As(err, &subErr) {
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrSubmissionFailed, err))
	}
	return fmt.Errorf("%s: %w", operation, err)
}
