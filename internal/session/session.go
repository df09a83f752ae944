package session

import (
	"context"
	"sync"
	"time"

	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/internal/filter"
	"go-image-enhancer/internal/media"
	"go-image-enhancer/internal/params"
	"go-image-enhancer/internal/recommend"
	"go-image-enhancer/internal/task"
	"go-image-enhancer/pkg/models"
)

// RecommendationTask is an in-flight recommendation
type RecommendationTask = task.Task[recommend.Recommendation]

// Launcher starts a recommendation for metrics under ctx. It is called with
// the session locked and must return without waiting for the work to start.
type Launcher func(ctx context.Context, m models.ImageMetrics) *RecommendationTask

var (
	errNoImage    = apperrors.NewConflictError("no image uploaded", nil)
	errSuperseded = apperrors.NewConflictError("operation superseded by a newer upload or reset", nil)
)

// Session is safe for concurrent use. Uploads and resets open a new
// generation and cancel every operation started in an older one; results
// carrying an older generation are discarded.
type Session struct {
	id string

	mu          sync.Mutex
	state       DisplayState
	generation  uint64
	scope       context.Context
	cancelScope context.CancelFunc

	image          *media.Image
	metrics        *models.ImageMetrics
	params         *params.Store
	recommendation *recommend.Recommendation
	pending        *RecommendationTask
	output         *filter.Output
	outputRevision uint64

	createdAt time.Time
	updatedAt time.Time
}

// New creates an empty session
func New(id string) *Session {
	now := time.Now()
	s := &Session{
		id:        id,
		state:     StateNoImage,
		params:    params.NewStore(),
		createdAt: now,
		updatedAt: now,
	}
	s.scope, s.cancelScope = context.WithCancel(context.Background())
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// View is a consistent snapshot of a session
type View struct {
	ID             string
	State          DisplayState
	Generation     uint64
	Analyzing      bool
	Image          *media.Image
	Metrics        *models.ImageMetrics
	Descriptor     filter.Descriptor
	Recommendation *recommend.Recommendation
	Output         *filter.Output
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// View returns a snapshot. Output is only set while the state is Applied.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:             s.id,
		State:          s.state,
		Generation:     s.generation,
		Analyzing:      s.pending != nil && s.pending.Pending(),
		Image:          s.image,
		Metrics:        s.metrics,
		Descriptor:     s.params.Descriptor(),
		Recommendation: s.recommendation,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.updatedAt,
	}
	if s.state == StateApplied {
		v.Output = s.output
	}
	return v
}

// BeginUpload supersedes everything in flight and clears the current image.
// The returned context ends when the upload is superseded or parent ends.
func (s *Session) BeginUpload(parent context.Context) (context.Context, uint64, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advanceLocked()
	s.clearImageLocked()
	ctx, cancel := s.deriveLocked(parent)
	return ctx, s.generation, cancel
}

// CompleteUpload attaches the loaded image and its metrics. It fails with a
// ConflictError when the upload was superseded.
func (s *Session) CompleteUpload(gen uint64, img *media.Image, m models.ImageMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return errSuperseded
	}
	s.image = img
	s.metrics = &m
	s.state = StateUploaded
	s.touchLocked()
	return nil
}

// FailUpload returns the session to NoImage after a failed upload. The
// descriptor is kept. It reports false when the upload was already superseded.
func (s *Session) FailUpload(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false
	}
	s.clearImageLocked()
	s.touchLocked()
	return true
}

// StartRecommendation launches a recommendation for the current metrics. A
// run already pending for the current image is returned instead of starting
// another; started reports which happened.
func (s *Session) StartRecommendation(launch Launcher) (t *RecommendationTask, gen uint64, started bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.HasImage() || s.metrics == nil {
		return nil, 0, false, errNoImage
	}
	if s.pending != nil {
		return s.pending, s.generation, false, nil
	}

	s.pending = launch(s.scope, *s.metrics)
	s.touchLocked()
	return s.pending, s.generation, true, nil
}

// CompleteRecommendation records the result of t. Results from a superseded
// generation or a failed run are discarded; a run that was already recorded
// reports OutcomeAlreadySettled.
func (s *Session) CompleteRecommendation(gen uint64, t *RecommendationTask) Outcome {
	rec, err := t.Result()

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return OutcomeDiscarded
	}
	if s.pending != t {
		return OutcomeAlreadySettled
	}
	s.pending = nil
	if err != nil {
		return OutcomeDiscarded
	}

	s.recommendation = &rec
	if s.state == StateUploaded {
		s.state = StateSuggested
	}
	s.touchLocked()
	return OutcomeAccepted
}

// SetFilterType changes the filter type. Leaving Applied hides the output.
func (s *Session) SetFilterType(t filter.FilterType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.params.SetFilterType(t); err != nil {
		return apperrors.NewValidationError("invalid filter type", err)
	}
	s.invalidateOutputLocked()
	return nil
}

// SetKernelSize stores n clamped to [1,31] and made odd, and returns the
// stored value. Leaving Applied hides the output.
func (s *Session) SetKernelSize(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.params.SetKernelSize(n)
	s.invalidateOutputLocked()
	return stored
}

// AcceptRecommendation adopts the current recommendation's filter type
func (s *Session) AcceptRecommendation() (recommend.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recommendation == nil {
		return recommend.Recommendation{}, apperrors.NewConflictError("no recommendation to accept", nil)
	}
	rec := *s.recommendation
	if err := s.params.AcceptRecommendation(rec); err != nil {
		return recommend.Recommendation{}, apperrors.NewInternalError("recommendation carries an invalid filter", err)
	}
	s.invalidateOutputLocked()
	return rec, nil
}

// ApplyTicket carries what an apply needs and identifies the state it started in
type ApplyTicket struct {
	Ctx        context.Context
	Cancel     context.CancelFunc
	Image      *media.Image
	Descriptor filter.Descriptor

	generation uint64
	revision   uint64
}

// PrepareApply snapshots the image and descriptor for an apply
func (s *Session) PrepareApply(parent context.Context) (*ApplyTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.HasImage() || s.image == nil {
		return nil, errNoImage
	}
	ctx, cancel := s.deriveLocked(parent)
	return &ApplyTicket{
		Ctx:        ctx,
		Cancel:     cancel,
		Image:      s.image,
		Descriptor: s.params.Descriptor(),
		generation: s.generation,
		revision:   s.params.Revision(),
	}, nil
}

// CompleteApply moves to Applied with out. It fails with a ConflictError when
// the image or the parameters changed while the filter was rendering.
func (s *Session) CompleteApply(ticket *ApplyTicket, out *filter.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.generation != s.generation {
		return errSuperseded
	}
	if !s.params.IsCurrent(ticket.revision) {
		return apperrors.NewConflictError("filter parameters changed while applying", nil)
	}
	s.output = out
	s.outputRevision = ticket.revision
	s.state = StateApplied
	s.touchLocked()
	return nil
}

// Output returns the applied output while it is current
func (s *Session) Output() (*filter.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateApplied || s.output == nil || !s.params.IsCurrent(s.outputRevision) {
		return nil, apperrors.NewConflictError("no applied output; apply a filter first", nil)
	}
	return s.output, nil
}

// Reset cancels in-flight work, drops the image and restores the default descriptor
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advanceLocked()
	s.clearImageLocked()
	s.params.Reset()
	s.touchLocked()
}

// Close cancels everything in flight. The session must not be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelScope()
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
	}
}

// advanceLocked opens a new generation with a fresh cancellation scope
func (s *Session) advanceLocked() {
	s.cancelScope()
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
	}
	s.generation++
	s.scope, s.cancelScope = context.WithCancel(context.Background())
}

func (s *Session) clearImageLocked() {
	s.state = StateNoImage
	s.image = nil
	s.metrics = nil
	s.recommendation = nil
	s.output = nil
}

// invalidateOutputLocked applies the staleness rule after a parameter change
func (s *Session) invalidateOutputLocked() {
	if s.state == StateApplied {
		s.state = StateUploaded
	}
	s.output = nil
	s.touchLocked()
}

// deriveLocked returns a context that ends with parent or with the current scope
func (s *Session) deriveLocked(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(s.scope, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Session) touchLocked() {
	s.updatedAt = time.Now()
}
