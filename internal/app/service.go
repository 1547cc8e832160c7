package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hylla/ctrain/internal/domain"
	"github.com/hylla/ctrain/internal/submission"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	DefaultProfile   domain.Profile
	ResetAfterSubmit bool
	Sinks            []Sink
	OnChange         func(domain.Progress)
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service owns the form state and coordinates persistence and submission.
type Service struct {
	mu        sync.Mutex
	repo      Repository
	calc      *domain.Calculator
	goals     domain.GoalTable
	clock     Clock
	cfg       ServiceConfig
	sinks     map[string]Sink
	sinkOrder []string

	profile   domain.Profile
	store     *RecordStore
	updatedAt time.Time
	updatedBy MutationActor
}

// NewService constructs a new value for this package.
func NewService(repo Repository, calc *domain.Calculator, goals domain.GoalTable, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if calc == nil {
		calc = domain.DefaultCalculator()
	}
	if len(goals.Qualifications()) == 0 && goals.Fallback() == 0 {
		goals = domain.DefaultGoalTable()
	}
	if clock == nil {
		clock = time.Now
	}
	cfg.DefaultProfile = normalizeDefaultProfile(cfg.DefaultProfile)

	s := &Service{
		repo:    repo,
		calc:    calc,
		goals:   goals,
		clock:   clock,
		cfg:     cfg,
		sinks:   map[string]Sink{},
		profile: cfg.DefaultProfile,
		store:   NewRecordStore(calc, idGen),
	}
	for _, sink := range cfg.Sinks {
		if sink == nil {
			continue
		}
		name := strings.TrimSpace(sink.Name())
		if _, exists := s.sinks[name]; exists || name == "" {
			continue
		}
		s.sinks[name] = sink
		s.sinkOrder = append(s.sinkOrder, name)
	}
	return s
}

// Load replaces in-memory state with the persisted form. A missing form starts fresh.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return nil
	}
	state, err := s.repo.LoadForm(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		s.profile = s.cfg.DefaultProfile
		s.store.Replace(nil)
		s.updatedAt = time.Time{}
		s.updatedBy = MutationActor{}
	case err != nil:
		return fmt.Errorf("load form: %w", err)
	default:
		s.profile = state.Profile
		s.store.Replace(state.Records)
		s.updatedAt = state.UpdatedAt
		s.updatedBy = MutationActor{ActorID: state.UpdatedBy, ActorType: state.UpdatedByType}
	}
	s.notifyLocked()
	return nil
}

// Form returns a copy of the current form state.
func (s *Service) Form() FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Progress returns the total against the resolved goal.
func (s *Service) Progress() domain.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

// Goal returns the goal for the current qualification.
func (s *Service) Goal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goals.Resolve(s.profile.Qualification)
}

// ProfilePatch lists the profile fields to change.
type ProfilePatch struct {
	Name          *string
	Period        *string
	Qualification *string
}

// SetProfile updates submitter fields. Unknown qualifications resolve to the default goal.
func (s *Service) SetProfile(ctx context.Context, patch ProfilePatch) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.mutateLocked(ctx, func() error {
		if patch.Name != nil {
			s.profile.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Period != nil {
			s.profile.Period = strings.TrimSpace(*patch.Period)
		}
		if patch.Qualification != nil {
			s.profile.Qualification = strings.TrimSpace(*patch.Qualification)
		}
		return nil
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return s.profile, nil
}

// AddActivity appends an empty record.
func (s *Service) AddActivity(ctx context.Context) (domain.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var record domain.ActivityRecord
	err := s.mutateLocked(ctx, func() error {
		record = s.store.Add()
		return nil
	})
	if err != nil {
		return domain.ActivityRecord{}, err
	}
	return record, nil
}

// UpdateActivity merges patch into one record and re-derives credits.
func (s *Service) UpdateActivity(ctx context.Context, id string, patch RecordPatch) (domain.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var record domain.ActivityRecord
	err := s.mutateLocked(ctx, func() error {
		updated, ok := s.store.Update(id, patch)
		if !ok {
			return ErrNotFound
		}
		record = updated
		return nil
	})
	if err != nil {
		return domain.ActivityRecord{}, err
	}
	return record, nil
}

// RemoveActivity deletes one record.
func (s *Service) RemoveActivity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutateLocked(ctx, func() error {
		if !s.store.Remove(id) {
			return ErrNotFound
		}
		return nil
	})
}

// AttachFile appends one attachment to a record.
func (s *Service) AttachFile(ctx context.Context, id string, attachment domain.Attachment) (domain.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attachment, err := domain.NewAttachment(attachment.Name, attachment.ContentType, attachment.Data)
	if err != nil {
		return domain.ActivityRecord{}, err
	}
	var record domain.ActivityRecord
	err = s.mutateLocked(ctx, func() error {
		current, ok := s.store.Get(id)
		if !ok {
			return ErrNotFound
		}
		attachments := append(current.Attachments, attachment)
		record, _ = s.store.Update(id, RecordPatch{Attachments: &attachments})
		return nil
	})
	if err != nil {
		return domain.ActivityRecord{}, err
	}
	return record, nil
}

// ClearAttachments removes every attachment from a record.
func (s *Service) ClearAttachments(ctx context.Context, id string) (domain.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var record domain.ActivityRecord
	err := s.mutateLocked(ctx, func() error {
		none := []domain.Attachment{}
		updated, ok := s.store.Update(id, RecordPatch{Attachments: &none})
		if !ok {
			return ErrNotFound
		}
		record = updated
		return nil
	})
	if err != nil {
		return domain.ActivityRecord{}, err
	}
	return record, nil
}

// Reset clears the form back to its defaults.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked(ctx)
}

// ListSinks returns registered sink names in registration order.
func (s *Service) ListSinks() []string {
	return append([]string(nil), s.sinkOrder...)
}

// SubmitResult summarizes a delivered submission.
type SubmitResult struct {
	Receipt      submission.Receipt
	Root         string
	Rows         int
	Files        int
	TotalCredits float64
	Complete     bool
	Reset        bool
}

// Submit builds the package, delivers it through the named sink and then optionally resets the form.
// An empty sink name selects the first registered sink. On failure the form is left unchanged and the
// error is a *SubmissionError. A delivered package whose follow-up reset fails returns both the result
// and the reset error.
func (s *Service) Submit(ctx context.Context, sinkName string) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sinkName = strings.TrimSpace(sinkName)
	if sinkName == "" && len(s.sinkOrder) > 0 {
		sinkName = s.sinkOrder[0]
	}
	sink, ok := s.sinks[sinkName]
	if !ok {
		return SubmitResult{}, newSubmissionError(sinkName, fmt.Errorf("%w: %q", ErrUnknownSink, sinkName))
	}

	pkg, err := submission.Build(s.headerLocked(), s.store.Records(), s.clock())
	if err != nil {
		return SubmitResult{}, newSubmissionError(sinkName, err)
	}
	receipt, err := sink.Deliver(ctx, pkg)
	if err != nil {
		return SubmitResult{}, newSubmissionError(sinkName, err)
	}

	result := SubmitResult{
		Receipt:      receipt,
		Root:         pkg.Root,
		Rows:         len(pkg.Rows),
		Files:        len(pkg.Files),
		TotalCredits: pkg.TotalCredits,
		Complete:     pkg.Complete,
	}
	if s.cfg.ResetAfterSubmit {
		if err := s.resetLocked(ctx); err != nil {
			return result, fmt.Errorf("reset after submit: %w", err)
		}
		result.Reset = true
	}
	return result, nil
}

// SummaryCSV renders the current details table without validating the form.
func (s *Service) SummaryCSV() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return submission.EncodeCSV(submission.RowsFor(s.headerLocked(), s.store.Records()))
}

// Catalog lists the tables that drive credit calculation.
type Catalog struct {
	Activities     []domain.ActivityDefinition
	Rotational     []RotationalAward
	Qualifications []domain.QualificationGoal
	DefaultGoal    float64
}

// RotationalAward pairs an assignment length with its award.
type RotationalAward struct {
	Months  int
	Credits float64
}

// Catalog returns the rate, duration and goal tables.
func (s *Service) Catalog() Catalog {
	rotational := s.calc.Rotational()
	months := rotational.Months()
	awards := make([]RotationalAward, 0, len(months))
	for _, m := range months {
		awards = append(awards, RotationalAward{Months: m, Credits: rotational.Award(m)})
	}
	return Catalog{
		Activities:     s.calc.Rates().Definitions(),
		Rotational:     awards,
		Qualifications: s.goals.Qualifications(),
		DefaultGoal:    s.goals.Fallback(),
	}
}

// ComputeCredits evaluates one activity value without touching the form.
func (s *Service) ComputeCredits(activityName string, raw float64) float64 {
	return s.calc.Compute(activityName, raw)
}

// ResolveGoal resolves a qualification without touching the form.
func (s *Service) ResolveGoal(qualification string) float64 {
	return s.goals.Resolve(qualification)
}

// InputHint returns the value label and cap note for an activity.
func (s *Service) InputHint(activityName string) (string, string) {
	return s.calc.InputHint(activityName)
}

// DefaultValue returns the value pre-filled for an activity.
func (s *Service) DefaultValue(activityName string) float64 {
	return s.calc.DefaultValue(activityName)
}

// mutateLocked applies fn, persists and restores the previous state when either step fails.
func (s *Service) mutateLocked(ctx context.Context, fn func() error) error {
	prevProfile := s.profile
	prevRecords := s.store.records
	s.store.records = s.store.Records()
	prevUpdatedAt, prevUpdatedBy := s.updatedAt, s.updatedBy

	restore := func() {
		s.profile = prevProfile
		s.store.records = prevRecords
		s.updatedAt, s.updatedBy = prevUpdatedAt, prevUpdatedBy
	}
	if err := fn(); err != nil {
		restore()
		return err
	}
	s.updatedAt = s.clock().UTC()
	s.updatedBy = actorFromContext(ctx)
	if s.repo != nil {
		if err := s.repo.SaveForm(ctx, s.stateLocked()); err != nil {
			restore()
			return fmt.Errorf("save form: %w", err)
		}
	}
	s.notifyLocked()
	return nil
}

// resetLocked clears profile and records.
func (s *Service) resetLocked(ctx context.Context) error {
	return s.mutateLocked(ctx, func() error {
		s.profile = s.cfg.DefaultProfile
		s.store.Replace(nil)
		return nil
	})
}

// stateLocked copies the current state.
func (s *Service) stateLocked() FormState {
	return FormState{
		Profile:       s.profile,
		Records:       s.store.Records(),
		UpdatedAt:     s.updatedAt,
		UpdatedBy:     s.updatedBy.ActorID,
		UpdatedByType: s.updatedBy.ActorType,
	}
}

// headerLocked builds the submission header from the profile.
func (s *Service) headerLocked() submission.Header {
	return submission.Header{
		Name:          s.profile.Name,
		Period:        s.profile.Period,
		Qualification: s.profile.Qualification,
		Goal:          s.goals.Resolve(s.profile.Qualification),
	}
}

// progressLocked computes progress for the current state.
func (s *Service) progressLocked() domain.Progress {
	return domain.NewProgress(s.store.Total(), s.goals.Resolve(s.profile.Qualification))
}

// notifyLocked reports progress to the change hook.
func (s *Service) notifyLocked() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange(s.progressLocked())
	}
}

// normalizeDefaultProfile fills unset defaults.
func normalizeDefaultProfile(p domain.Profile) domain.Profile {
	def := domain.DefaultProfile()
	p.Name = strings.TrimSpace(p.Name)
	if strings.TrimSpace(p.Period) == "" {
		p.Period = def.Period
	}
	if strings.TrimSpace(p.Qualification) == "" {
		p.Qualification = def.Qualification
	}
	return p
}
