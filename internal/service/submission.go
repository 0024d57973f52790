package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-client/internal/domain"
)

// State is the position of a form in the submission lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateInFlight   State = "in_flight"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// TransitionFunc observes a state change. It runs while the workflow lock is
// held and must not call back into the workflow.
type TransitionFunc func(from, to State)

// FileInfo describes the staged file without its content.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Snapshot is a consistent copy of a form's request state.
type Snapshot struct {
	State   State     `json:"state"`
	Message string    `json:"message,omitempty"`
	Busy    bool      `json:"busy"`
	Drugs   []string  `json:"drugs"`
	Pending string    `json:"pending,omitempty"`
	File    *FileInfo `json:"file,omitempty"`
}

// SubmissionWorkflow owns one request form: its drug list, its staged file
// and its submission state. At most one analysis request is outstanding at a
// time; Busy reports whether one is.
type SubmissionWorkflow struct {
	mu        sync.Mutex
	drugs     *DrugList
	stage     *FileStage
	results   *ResultSet
	analysis  domain.AnalysisService
	recorder  domain.HistoryRecorder
	logger    *logrus.Logger
	state     State
	message   string
	observers []TransitionFunc
}

// WorkflowOption customizes a SubmissionWorkflow.
type WorkflowOption func(*SubmissionWorkflow)

// WithRecorder records every successful submission.
func WithRecorder(recorder domain.HistoryRecorder) WorkflowOption {
	return func(w *SubmissionWorkflow) {
		w.recorder = recorder
	}
}

// WithResultSet publishes results into an existing result set.
func WithResultSet(results *ResultSet) WorkflowOption {
	return func(w *SubmissionWorkflow) {
		w.results = results
	}
}

// WithValidator replaces the default file validator.
func WithValidator(validator *FileValidator) WorkflowOption {
	return func(w *SubmissionWorkflow) {
		w.stage = NewFileStage(validator)
	}
}

// NewSubmissionWorkflow creates an idle form that submits through analysis.
func NewSubmissionWorkflow(analysis domain.AnalysisService, logger *logrus.Logger, opts ...WorkflowOption) *SubmissionWorkflow {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	w := &SubmissionWorkflow{
		drugs:    NewDrugList(),
		stage:    NewFileStage(nil),
		results:  NewResultSet(),
		analysis: analysis,
		logger:   logger,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnTransition registers an observer for state changes.
func (w *SubmissionWorkflow) OnTransition(fn TransitionFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, fn)
}

// AddDrugs adds comma-separated drug names to the list.
func (w *SubmissionWorkflow) AddDrugs(raw string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drugs.Add(raw)
	return w.drugs.Tokens()
}

// RemoveDrug removes an exact drug token.
func (w *SubmissionWorkflow) RemoveDrug(token string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drugs.Remove(token)
	return w.drugs.Tokens()
}

// SetPending replaces the drug input buffer.
func (w *SubmissionWorkflow) SetPending(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drugs.SetPending(text)
}

// AddPending commits the drug input buffer.
func (w *SubmissionWorkflow) AddPending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drugs.AddPending()
	return w.drugs.Tokens()
}

// StageFile validates and stages file, replacing any staged file.
func (w *SubmissionWorkflow) StageFile(file domain.UploadedFile) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.stage.Stage(file); err != nil {
		w.logger.WithFields(logrus.Fields{
			"file_name": file.Name,
			"file_size": file.Size,
		}).WithError(err).Info("Rejected variant file")
		return err
	}
	return nil
}

// ClearFile drops the staged file.
func (w *SubmissionWorkflow) ClearFile() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stage.Clear()
}

// Busy reports whether an analysis request is in flight.
func (w *SubmissionWorkflow) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == StateInFlight
}

// State returns the current state and failure message.
func (w *SubmissionWorkflow) State() (State, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.message
}

// Snapshot returns a consistent copy of the form's request state.
func (w *SubmissionWorkflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := Snapshot{
		State:   w.state,
		Message: w.message,
		Busy:    w.state == StateInFlight,
		Drugs:   w.drugs.Tokens(),
		Pending: w.drugs.Pending(),
	}
	if file, ok := w.stage.Staged(); ok {
		snap.File = &FileInfo{Name: file.Name, Size: file.Size}
	}
	return snap
}

// Results returns the result set the workflow publishes into.
func (w *SubmissionWorkflow) Results() *ResultSet {
	return w.results
}

// Submit validates the form and, when it is complete, issues exactly one
// analysis request carrying the staged file and the comma-joined drug list.
//
// A submit while a request is in flight returns domain.ErrSubmissionInFlight
// without touching the state. Missing preconditions fail with a
// *domain.ValidationError (file checked before drugs); a failed call returns a
// *domain.SubmissionError. There is no retry and no workflow-owned timeout.
func (w *SubmissionWorkflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.state == StateInFlight {
		w.mu.Unlock()
		return domain.ErrSubmissionInFlight
	}
	w.transition(StateValidating, "")

	file, ok := w.stage.Staged()
	if !ok {
		err := domain.NewValidationError("file", domain.ReasonMissingFile, nil)
		w.transition(StateFailed, err.Error())
		w.mu.Unlock()
		return err
	}
	if w.drugs.Len() == 0 {
		err := domain.NewValidationError("drugs", domain.ReasonMissingDrugs, nil)
		w.transition(StateFailed, err.Error())
		w.mu.Unlock()
		return err
	}

	drugs := w.drugs.Tokens()
	joined := w.drugs.Joined()
	w.transition(StateInFlight, "")
	w.mu.Unlock()

	submissionID := uuid.NewString()
	if domain.CorrelationIDFrom(ctx) == "" {
		ctx = domain.WithCorrelationID(ctx, submissionID)
	}
	log := w.logger.WithFields(logrus.Fields{
		"submission_id": submissionID,
		"file_name":     file.Name,
		"file_size":     file.Size,
		"drugs":         joined,
	})
	log.Info("Submitting variant file for analysis")
	started := time.Now()

	payload, err := w.analysis.Analyze(ctx, file, joined)
	var results []domain.AnalysisResult
	if err == nil {
		results, err = domain.NormalizeResults(payload)
		if err != nil {
			err = fmt.Errorf("failed to decode analysis response: %w", err)
		}
	}

	if err != nil {
		serr := domain.NewSubmissionError(err)
		w.mu.Lock()
		w.transition(StateFailed, serr.Message())
		w.mu.Unlock()
		log.WithError(err).WithField("duration", time.Since(started)).Warn("Analysis failed")
		return serr
	}

	w.mu.Lock()
	w.results.Publish(results)
	w.transition(StateSucceeded, "")
	w.mu.Unlock()

	stats := AggregateStats(results)
	log.WithFields(logrus.Fields{
		"results":   stats.Total,
		"high_risk": stats.HighRisk,
		"duration":  time.Since(started),
	}).Info("Analysis completed")

	if w.recorder != nil {
		record := &domain.SubmissionRecord{
			ID:        submissionID,
			FileName:  file.Name,
			FileSize:  file.Size,
			Drugs:     drugs,
			Total:     stats.Total,
			Safe:      stats.Safe,
			Adjust:    stats.Adjust,
			HighRisk:  stats.HighRisk,
			Results:   results,
			CreatedAt: time.Now().UTC(),
		}
		if err := w.recorder.Record(ctx, record); err != nil {
			log.WithError(err).Warn("Failed to record analysis history")
		}
	}
	return nil
}

// transition must be called with w.mu held.
func (w *SubmissionWorkflow) transition(to State, message string) {
	from := w.state
	w.state = to
	w.message = message
	for _, fn := range w.observers {
		fn(from, to)
	}
}
