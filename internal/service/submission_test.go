package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-client/internal/domain"
)

type mockAnalysisService struct {
	mock.Mock
}

func (m *mockAnalysisService) Analyze(ctx context.Context, file domain.UploadedFile, drugs string) ([]byte, error) {
	args := m.Called(ctx, file, drugs)
	payload, _ := args.Get(0).([]byte)
	return payload, args.Error(1)
}

// blockingAnalysis holds every call until release is closed.
type blockingAnalysis struct {
	calls   int32
	started chan struct{}
	release chan struct{}
	payload []byte
}

func (b *blockingAnalysis) Analyze(ctx context.Context, file domain.UploadedFile, drugs string) ([]byte, error) {
	atomic.AddInt32(&b.calls, 1)
	b.started <- struct{}{}
	<-b.release
	return b.payload, nil
}

type recorderFunc func(ctx context.Context, record *domain.SubmissionRecord) error

func (f recorderFunc) Record(ctx context.Context, record *domain.SubmissionRecord) error {
	return f(ctx, record)
}

func newTestLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func vcf(name string) domain.UploadedFile {
	return domain.UploadedFile{Name: name, Size: 4, Content: []byte("##fi")}
}

func recordTransitions(w *SubmissionWorkflow) *[]State {
	var states []State
	w.OnTransition(func(from, to State) {
		states = append(states, to)
	})
	return &states
}

func TestSubmit_PreconditionOrdering(t *testing.T) {
	analysis := new(mockAnalysisService)
	w := NewSubmissionWorkflow(analysis, newTestLogger())
	states := recordTransitions(w)

	err := w.Submit(context.Background())

	assert.True(t, domain.IsValidationReason(err, domain.ReasonMissingFile), "missing file is reported before missing drugs")
	state, message := w.State()
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, "Please upload a VCF file.", message)
	assert.Equal(t, []State{StateValidating, StateFailed}, *states)
	analysis.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_MissingDrugs(t *testing.T) {
	analysis := new(mockAnalysisService)
	w := NewSubmissionWorkflow(analysis, newTestLogger())
	require.NoError(t, w.StageFile(vcf("a.vcf")))

	err := w.Submit(context.Background())

	assert.True(t, domain.IsValidationReason(err, domain.ReasonMissingDrugs))
	state, _ := w.State()
	assert.Equal(t, StateFailed, state)
	analysis.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_Success(t *testing.T) {
	analysis := new(mockAnalysisService)
	file := vcf("patient.vcf")
	analysis.On("Analyze", mock.Anything, file, "CODEINE,WARFARIN").
		Return([]byte(`[{"drug":"CODEINE","risk_assessment":{"risk_label":"Toxic"}},{"drug":"WARFARIN","risk_assessment":{"risk_label":"Safe"}}]`), nil).
		Once()

	w := NewSubmissionWorkflow(analysis, newTestLogger())
	states := recordTransitions(w)
	w.AddDrugs("codeine, warfarin")
	require.NoError(t, w.StageFile(file))

	require.NoError(t, w.Submit(context.Background()))

	assert.Equal(t, []State{StateValidating, StateInFlight, StateSucceeded}, *states)
	assert.False(t, w.Busy())
	assert.Equal(t, 2, w.Results().Len())
	assert.Equal(t, Stats{Total: 2, Safe: 1, HighRisk: 1}, w.Results().Stats())
	analysis.AssertExpectations(t)
}

func TestSubmit_BareObjectNormalized(t *testing.T) {
	analysis := new(mockAnalysisService)
	analysis.On("Analyze", mock.Anything, mock.Anything, "CODEINE").
		Return([]byte(`{"drug":"CODEINE","pharmacogenomic_profile":{"phenotype":"PM"}}`), nil)

	w := NewSubmissionWorkflow(analysis, newTestLogger())
	w.AddDrugs("codeine")
	require.NoError(t, w.StageFile(vcf("a.vcf")))

	require.NoError(t, w.Submit(context.Background()))

	items := w.Results().Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Poor Metabolizer", items[0].Annotation.Phenotype.Label)
}

func TestSubmit_FailureMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"service detail", &domain.ServiceError{Service: "analysis service", StatusCode: 400, Detail: "Unsupported drug: ASPIRIN"}, "Unsupported drug: ASPIRIN"},
		{"transport message", errors.New("context deadline exceeded"), "context deadline exceeded"},
		{"generic fallback", errors.New(""), domain.GenericAnalysisFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := new(mockAnalysisService)
			analysis.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := NewSubmissionWorkflow(analysis, newTestLogger())
			w.AddDrugs("aspirin")
			require.NoError(t, w.StageFile(vcf("a.vcf")))

			err := w.Submit(context.Background())

			var serr *domain.SubmissionError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.expected, serr.Message())
			state, message := w.State()
			assert.Equal(t, StateFailed, state)
			assert.Equal(t, tt.expected, message)
			analysis.AssertNumberOfCalls(t, "Analyze", 1)
		})
	}
}

func TestSubmit_MalformedPayloadFails(t *testing.T) {
	analysis := new(mockAnalysisService)
	analysis.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return([]byte(`[{"drug":`), nil)

	w := NewSubmissionWorkflow(analysis, newTestLogger())
	w.AddDrugs("codeine")
	require.NoError(t, w.StageFile(vcf("a.vcf")))

	err := w.Submit(context.Background())

	var serr *domain.SubmissionError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Message(), "failed to decode analysis response")
	assert.Equal(t, 0, w.Results().Len())
}

func TestSubmit_ResubmitAfterFailure(t *testing.T) {
	analysis := new(mockAnalysisService)
	analysis.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()
	analysis.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return([]byte(`[]`), nil).Once()

	w := NewSubmissionWorkflow(analysis, newTestLogger())
	states := recordTransitions(w)
	w.AddDrugs("codeine")
	require.NoError(t, w.StageFile(vcf("a.vcf")))

	require.Error(t, w.Submit(context.Background()))
	require.NoError(t, w.Submit(context.Background()))

	assert.Equal(t, []State{
		StateValidating, StateInFlight, StateFailed,
		StateValidating, StateInFlight, StateSucceeded,
	}, *states)
	analysis.AssertExpectations(t)
}

func TestSubmit_SingleFlight(t *testing.T) {
	analysis := &blockingAnalysis{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		payload: []byte(`{"drug":"CODEINE"}`),
	}
	w := NewSubmissionWorkflow(analysis, newTestLogger())
	w.AddDrugs("codeine")
	require.NoError(t, w.StageFile(vcf("a.vcf")))

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = w.Submit(context.Background())
	}()

	select {
	case <-analysis.started:
	case <-time.After(5 * time.Second):
		t.Fatal("analysis call never started")
	}

	assert.True(t, w.Busy())
	assert.True(t, w.Snapshot().Busy)
	err := w.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)
	state, _ := w.State()
	assert.Equal(t, StateInFlight, state, "rejected submit leaves the state alone")

	close(analysis.release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&analysis.calls))
	assert.False(t, w.Busy())
}

func TestSubmit_RecordsHistory(t *testing.T) {
	analysis := new(mockAnalysisService)
	analysis.On("Analyze", mock.Anything, mock.Anything, mock.Anything).
		Return([]byte(`[{"drug":"CODEINE","risk_assessment":{"risk_label":"Safe"}}]`), nil)

	var recorded *domain.SubmissionRecord
	recorder := recorderFunc(func(ctx context.Context, record *domain.SubmissionRecord) error {
		recorded = record
		return errors.New("disk full")
	})

	logger, hook := test.NewNullLogger()
	w := NewSubmissionWorkflow(analysis, logger, WithRecorder(recorder))
	w.AddDrugs("codeine")
	require.NoError(t, w.StageFile(vcf("patient.vcf")))

	require.NoError(t, w.Submit(context.Background()), "history failures do not fail the submission")

	require.NotNil(t, recorded)
	assert.NotEmpty(t, recorded.ID)
	assert.Equal(t, "patient.vcf", recorded.FileName)
	assert.Equal(t, []string{"CODEINE"}, recorded.Drugs)
	assert.Equal(t, 1, recorded.Safe)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestSubmit_PassesCorrelationID(t *testing.T) {
	analysis := new(mockAnalysisService)
	analysis.On("Analyze", mock.MatchedBy(func(ctx context.Context) bool {
		return domain.CorrelationIDFrom(ctx) == "corr-1"
	}), mock.Anything, mock.Anything).Return([]byte(`[]`), nil)

	w := NewSubmissionWorkflow(analysis, newTestLogger())
	w.AddDrugs("codeine")
	require.NoError(t, w.StageFile(vcf("a.vcf")))

	require.NoError(t, w.Submit(domain.WithCorrelationID(context.Background(), "corr-1")))
	analysis.AssertExpectations(t)
}

func TestSnapshot(t *testing.T) {
	w := NewSubmissionWorkflow(new(mockAnalysisService), newTestLogger())
	w.SetPending("codeine")
	snap := w.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, "codeine", snap.Pending)
	assert.Nil(t, snap.File)

	w.AddPending()
	require.NoError(t, w.StageFile(vcf("a.vcf")))
	w.RemoveDrug("WARFARIN")

	snap = w.Snapshot()
	assert.Equal(t, []string{"CODEINE"}, snap.Drugs)
	assert.Equal(t, "", snap.Pending)
	require.NotNil(t, snap.File)
	assert.Equal(t, "a.vcf", snap.File.Name)

	w.ClearFile()
	assert.Nil(t, w.Snapshot().File)
}
