package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"go-image-enhancer/internal/analyzer"
	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/internal/filter"
	"go-image-enhancer/internal/logger"
	"go-image-enhancer/internal/media"
	"go-image-enhancer/internal/observer"
	"go-image-enhancer/internal/recommend"
	"go-image-enhancer/internal/repository"
	"go-image-enhancer/internal/session"
	"go-image-enhancer/internal/storage"
	"go-image-enhancer/internal/task"
	"go-image-enhancer/pkg/models"
	"go-image-enhancer/pkg/validation"
)

// nearDuplicateDistance is the largest dHash distance at which a re-upload
// counts as the same picture
const nearDuplicateDistance = 5

// EnhancementService defines the session operations exposed over HTTP
type EnhancementService interface {
	CreateSession(ctx context.Context) (*models.SessionResponse, error)
	GetSession(ctx context.Context, id string) (*models.SessionResponse, error)
	DeleteSession(ctx context.Context, id string) error

	// Upload replaces the session image. An unsupported media type leaves the
	// session untouched; an undecodable image leaves it without an image.
	Upload(ctx context.Context, id string, raw media.Raw) (*models.SessionResponse, error)
	UploadFromURL(ctx context.Context, id string, imageURL string) (*models.SessionResponse, error)

	// RequestRecommendation starts the recommendation in the background. With
	// wait set it blocks until the recommendation settles or ctx ends.
	RequestRecommendation(ctx context.Context, id string, wait bool) (*models.SessionResponse, error)
	AcceptRecommendation(ctx context.Context, id string) (*models.SessionResponse, error)

	SetFilterType(ctx context.Context, id string, filterType string) (*models.SessionResponse, error)
	SetKernelSize(ctx context.Context, id string, kernelSize int) (*models.SessionResponse, error)

	Apply(ctx context.Context, id string) (*models.SessionResponse, error)
	Output(ctx context.Context, id string) (*Download, error)
	Reset(ctx context.Context, id string) (*models.SessionResponse, error)

	Stats() map[string]interface{}
	Close()
}

// Download is an applied output ready to be served
type Download struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Options tunes the service
type Options struct {
	// RecommendLatency delays every recommendation, modelling a remote advisor
	RecommendLatency time.Duration
	ApplyTimeout     time.Duration
	FetchTimeout     time.Duration
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		ApplyTimeout: 20 * time.Second,
		FetchTimeout: 15 * time.Second,
	}
}

// Dependencies groups the collaborators of the service
type Dependencies struct {
	Sessions     repository.SessionRepository
	Loader       *media.Loader
	Extractor    analyzer.Extractor
	Advisor      recommend.Advisor
	Pipeline     *filter.Pipeline
	Fetcher      storage.ImageFetcher
	URLValidator *validation.URLValidator
	Artifacts    storage.ArtifactStore
	Pool         *task.Pool
	Events       observer.Subject
	Metrics      *observer.MetricsObserver
}

type enhancementService struct {
	Dependencies
	mediaValidator *validation.MediaValidator
	options        Options
}

// NewEnhancementService creates the service. Pool, Events, Loader and
// URLValidator get defaults when nil.
func NewEnhancementService(deps Dependencies, options Options) EnhancementService {
	defaults := DefaultOptions()
	if options.ApplyTimeout <= 0 {
		options.ApplyTimeout = defaults.ApplyTimeout
	}
	if options.FetchTimeout <= 0 {
		options.FetchTimeout = defaults.FetchTimeout
	}
	if deps.Pool == nil {
		deps.Pool = task.NewPool(0)
	}
	if deps.Events == nil {
		deps.Events = observer.NewEventPublisher()
	}
	if deps.Loader == nil {
		deps.Loader = media.NewLoader()
	}
	if deps.URLValidator == nil {
		deps.URLValidator = validation.NewURLValidator()
	}
	if deps.Artifacts == nil {
		deps.Artifacts = storage.NewMemoryArtifactStore()
	}
	deps.Pool.Start()

	return &enhancementService{
		Dependencies:   deps,
		mediaValidator: validation.NewMediaValidator(),
		options:        options,
	}
}

func (s *enhancementService) CreateSession(ctx context.Context) (*models.SessionResponse, error) {
	sess, err := s.Sessions.Create(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrRepositoryFull) {
			return nil, apperrors.NewConflictError("session limit reached", err)
		}
		return nil, apperrors.NewInternalError("failed to create session", err)
	}
	s.publish(ctx, observer.SessionEvent{EventType: observer.SessionCreated, SessionID: sess.ID(), Success: true})
	return toResponse(sess.View()), nil
}

func (s *enhancementService) GetSession(ctx context.Context, id string) (*models.SessionResponse, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(sess.View()), nil
}

func (s *enhancementService) DeleteSession(ctx context.Context, id string) error {
	if err := s.Sessions.Delete(ctx, id); err != nil {
		return s.lookupError(id, err)
	}
	s.dropArtifacts(ctx, id)
	s.publish(ctx, observer.SessionEvent{EventType: observer.SessionDeleted, SessionID: id, Success: true})
	return nil
}

func (s *enhancementService) Upload(ctx context.Context, id string, raw media.Raw) (*models.SessionResponse, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	mediaType, err := s.mediaValidator.ResolveMediaType(raw.MediaType, raw.Data)
	if err != nil {
		s.publish(ctx, observer.SessionEvent{
			EventType: observer.UploadRejected,
			SessionID: id,
			Error:     err.Error(),
			Metadata:  map[string]interface{}{"declared_type": raw.MediaType},
		})
		return nil, err
	}
	raw.MediaType = mediaType
	previous := sess.View().Image

	start := time.Now()
	uploadCtx, gen, cancel := sess.BeginUpload(ctx)
	defer cancel()
	s.dropArtifacts(ctx, id)

	img, err := s.Loader.Load(raw)
	if err == nil {
		var metrics models.ImageMetrics
		metrics, err = s.Extractor.Extract(uploadCtx, img)
		if err == nil {
			err = sess.CompleteUpload(gen, img, metrics)
		}
	}
	if err != nil {
		err = s.contextError("image analysis", ctx, err)
		if !sess.FailUpload(gen) && !apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			err = apperrors.NewConflictError("upload superseded by a newer upload or reset", err)
		}
		s.publish(ctx, observer.SessionEvent{
			EventType:  observer.UploadFailed,
			SessionID:  id,
			Generation: gen,
			Duration:   time.Since(start),
			Error:      err.Error(),
		})
		return nil, err
	}

	distance := media.Distance(previous, img)
	if distance >= 0 && distance <= nearDuplicateDistance {
		logger.ForSession(id).WithFields(logrus.Fields{
			"fingerprint":          img.Fingerprint,
			"fingerprint_distance": distance,
		}).Info("Re-upload is a near duplicate of the previous image")
	}

	v := sess.View()
	s.publish(ctx, observer.SessionEvent{
		EventType:  observer.ImageUploaded,
		SessionID:  id,
		Generation: gen,
		Duration:   time.Since(start),
		Success:    true,
		Metadata: map[string]interface{}{
			"media_type":           img.MediaType,
			"width":                img.Width,
			"height":               img.Height,
			"blur":                 v.Metrics.Blur,
			"brightness":           v.Metrics.Brightness,
			"contrast":             v.Metrics.Contrast,
			"extractor":            s.Extractor.Name(),
			"fingerprint_distance": distance,
		},
	})
	return toResponse(v), nil
}

func (s *enhancementService) UploadFromURL(ctx context.Context, id string, imageURL string) (*models.SessionResponse, error) {
	if _, err := s.session(ctx, id); err != nil {
		return nil, err
	}
	if err := s.URLValidator.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}
	if s.Fetcher == nil {
		return nil, apperrors.NewInternalError("upload by URL is not configured", nil)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.options.FetchTimeout)
	defer cancel()

	raw, err := s.Fetcher.Fetch(fetchCtx, imageURL)
	if err != nil {
		logger.ForSession(id).WithError(err).WithField("url", imageURL).Warn("Image fetch failed")
		return nil, err
	}
	return s.Upload(ctx, id, raw)
}

func (s *enhancementService) RequestRecommendation(ctx context.Context, id string, wait bool) (*models.SessionResponse, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	tk, gen, started, err := sess.StartRecommendation(s.launchRecommendation)
	if err != nil {
		return nil, err
	}
	if started {
		s.publish(ctx, observer.SessionEvent{EventType: observer.RecommendationStarted, SessionID: id, Generation: gen})
		go s.settleRecommendation(sess, gen, tk, true)
	}

	if wait {
		if _, err := tk.Wait(ctx); err != nil && ctx.Err() != nil {
			return nil, s.contextError("recommendation", ctx, err)
		}
		if s.settleRecommendation(sess, gen, tk, false) == session.OutcomeDiscarded {
			return nil, apperrors.NewConflictError("recommendation superseded by a newer upload or reset", nil)
		}
	}
	return toResponse(sess.View()), nil
}

// launchRecommendation runs the advisor on the pool. The configured latency
// is waited out first and ends early when ctx does.
func (s *enhancementService) launchRecommendation(ctx context.Context, m models.ImageMetrics) *session.RecommendationTask {
	latency := s.options.RecommendLatency
	return task.Go(s.Pool, ctx, func(ctx context.Context) (recommend.Recommendation, error) {
		if latency > 0 {
			timer := time.NewTimer(latency)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return recommend.Recommendation{}, ctx.Err()
			case <-timer.C:
			}
		}
		return s.Advisor.Recommend(m), nil
	})
}

// settleRecommendation records tk on the session and publishes the outcome.
// The background watcher and waiting requests both call it; only one of them
// sees OutcomeAccepted, and discards are published by the watcher alone.
func (s *enhancementService) settleRecommendation(sess *session.Session, gen uint64, tk *session.RecommendationTask, publishDiscard bool) session.Outcome {
	outcome := sess.CompleteRecommendation(gen, tk)
	ctx := context.Background()

	switch outcome {
	case session.OutcomeAccepted:
		rec, _ := tk.Result()
		s.publish(ctx, observer.SessionEvent{
			EventType:  observer.RecommendationCompleted,
			SessionID:  sess.ID(),
			Generation: gen,
			Success:    true,
			Metadata: map[string]interface{}{
				"filter_type":     string(rec.FilterType),
				"rationale_class": string(rec.Class),
			},
		})
	case session.OutcomeDiscarded:
		if !publishDiscard {
			break
		}
		event := observer.SessionEvent{EventType: observer.RecommendationDiscarded, SessionID: sess.ID(), Generation: gen}
		if _, err := tk.Result(); err != nil {
			event.Error = err.Error()
		}
		s.publish(ctx, event)
	}
	return outcome
}

func (s *enhancementService) AcceptRecommendation(ctx context.Context, id string) (*models.SessionResponse, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := sess.AcceptRecommendation()
	if err != nil {
		return nil, err
	}

	v := sess.View()
	s.publish(ctx, observer.SessionEvent{
		EventType:  observer.RecommendationAccepted,
		SessionID:  id,
		Generation: v.Generation,
		Success:    true,
		Metadata:   map[string]interface{}{"filter_type": string(rec.FilterType)},
	})
	return toResponse(v), nil
}

func (s *enhancementService) SetFilterType(ctx context.Context, id string, filterType string) (*models.SessionResponse, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	ft, err := filter.ParseFilterType(filterType)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid filter type", err)
	}
	if err := sess.SetFilterType(ft); err != nil {
		return nil, err
	}
	return s.parametersChanged(ctx, sess), nil
}

func (s *enhancementService) SetKernelSize(ctx context.Context, id string, kernelSize int) (*models.SessionResponse, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.SetKernelSize(kernelSize)
	return s.parametersChanged(ctx, sess), nil
}

func (s *enhancementService) parametersChanged(ctx context.Context, sess *session.Session) *models.SessionResponse {
	v := sess.View()
	s.publish(ctx, observer.SessionEvent{
		EventType:  observer.ParametersChanged,
		SessionID:  sess.ID(),
		Generation: v.Generation,
		Success:    true,
		Metadata:   map[string]interface{}{"descriptor": v.Descriptor.String()},
	})
	return toResponse(v)
}

func (s *enhancementService) Apply(ctx context.Context, id string) (*models.SessionResponse, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	ticket, err := sess.PrepareApply(ctx)
	if err != nil {
		return nil, err
	}
	defer ticket.Cancel()

	start := time.Now()
	applyCtx, cancel := context.WithTimeout(ticket.Ctx, s.options.ApplyTimeout)
	defer cancel()

	out, err := s.Pipeline.Apply(applyCtx, ticket.Image, ticket.Descriptor)
	if err == nil {
		err = s.Artifacts.Put(applyCtx, artifactKey(id, out), storage.Artifact{Data: out.Data, ContentType: out.MediaType})
		if err != nil && applyCtx.Err() == nil {
			err = apperrors.NewApplicationError("failed to store filtered image", err)
		}
	}
	if err == nil {
		err = sess.CompleteApply(ticket, out)
	}
	if err != nil {
		err = s.contextError("filter application", ctx, err)
		s.publish(ctx, observer.SessionEvent{
			EventType: observer.FilterFailed,
			SessionID: id,
			Duration:  time.Since(start),
			Error:     err.Error(),
			Metadata:  map[string]interface{}{"filter_type": string(ticket.Descriptor.FilterType), "kernel_size": ticket.Descriptor.KernelSize},
		})
		return nil, err
	}

	v := sess.View()
	s.publish(ctx, observer.SessionEvent{
		EventType:  observer.FilterApplied,
		SessionID:  id,
		Generation: v.Generation,
		Duration:   time.Since(start),
		Success:    true,
		Metadata: map[string]interface{}{
			"filter_type": string(out.Descriptor.FilterType),
			"kernel_size": out.Descriptor.KernelSize,
			"backend":     s.Pipeline.Backend(),
			"store":       s.Artifacts.Name(),
		},
	})
	return toResponse(v), nil
}

func (s *enhancementService) Output(ctx context.Context, id string) (*Download, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := sess.Output()
	if err != nil {
		return nil, err
	}

	d := &Download{
		Data:        out.Data,
		ContentType: out.MediaType,
		Filename:    fmt.Sprintf("filtered-%s-%d%s", out.Descriptor.FilterType, out.Descriptor.KernelSize, extensionFor(out.MediaType)),
	}

	artifact, err := s.Artifacts.Get(ctx, artifactKey(id, out))
	if err != nil {
		logger.ForSession(id).WithError(err).WithField("store", s.Artifacts.Name()).
			Warn("Artifact unavailable, serving the in-memory output")
		return d, nil
	}
	d.Data = artifact.Data
	if artifact.ContentType != "" {
		d.ContentType = artifact.ContentType
	}
	return d, nil
}

func (s *enhancementService) Reset(ctx context.Context, id string) (*models.SessionResponse, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Reset()
	s.dropArtifacts(ctx, id)

	v := sess.View()
	s.publish(ctx, observer.SessionEvent{EventType: observer.SessionReset, SessionID: id, Generation: v.Generation, Success: true})
	return toResponse(v), nil
}

func (s *enhancementService) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"sessions": s.Sessions.Count(),
		"pool":     s.Pool.GetStats(),
	}
	if s.Metrics != nil {
		stats["events"] = s.Metrics.GetMetrics()
	}
	return stats
}

func (s *enhancementService) Close() {
	s.Pool.Close()
}

func (s *enhancementService) session(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.Sessions.Get(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	return sess, nil
}

func (s *enhancementService) lookupError(id string, err error) error {
	if errors.Is(err, repository.ErrSessionNotFound) {
		return apperrors.NewNotFoundError(fmt.Sprintf("session %s not found", id), err)
	}
	return s.contextError("session lookup", context.Background(), err)
}

// contextError maps cancellation to an AppError. A cancellation that did not
// come from the caller's ctx means a newer upload or reset superseded the
// operation.
func (s *enhancementService) contextError(op string, caller context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError(op+" timed out", err)
	case errors.Is(err, context.Canceled) && caller.Err() == nil:
		return apperrors.NewConflictError(op+" superseded by a newer upload or reset", err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewConflictError(op+" cancelled", err)
	}
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		return err
	}
	return apperrors.NewInternalError(op+" failed", err)
}

func (s *enhancementService) dropArtifacts(ctx context.Context, id string) {
	if err := s.Artifacts.DeletePrefix(ctx, id+"/"); err != nil {
		logger.ForSession(id).WithError(err).Warn("Failed to delete stale artifacts")
	}
}

func (s *enhancementService) publish(ctx context.Context, event observer.SessionEvent) {
	s.Events.NotifyObservers(ctx, event)
}

func artifactKey(sessionID string, out *filter.Output) string {
	return fmt.Sprintf("%s/%s%s", sessionID, out.Digest, extensionFor(out.MediaType))
}

func extensionFor(mediaType string) string {
	if mediaType == validation.MediaTypeJPEG {
		return ".jpg"
	}
	return ".png"
}

func toResponse(v session.View) *models.SessionResponse {
	resp := &models.SessionResponse{
		ID:        v.ID,
		State:     v.State.String(),
		Analyzing: v.Analyzing,
		Metrics:   v.Metrics,
		Descriptor: models.FilterDescriptor{
			FilterType: string(v.Descriptor.FilterType),
			KernelSize: v.Descriptor.KernelSize,
		},
	}
	if v.Image != nil {
		resp.Image = &models.ImageInfo{
			MediaType:   v.Image.MediaType,
			Width:       v.Image.Width,
			Height:      v.Image.Height,
			SizeBytes:   len(v.Image.Data),
			Digest:      v.Image.Digest,
			Fingerprint: v.Image.Fingerprint,
		}
	}
	if v.Recommendation != nil {
		resp.Recommendation = v.Recommendation.ToModel()
	}
	if v.Output != nil {
		resp.Output = &models.OutputInfo{
			MediaType: v.Output.MediaType,
			Width:     v.Output.Width,
			Height:    v.Output.Height,
			SizeBytes: len(v.Output.Data),
			Digest:    v.Output.Digest,
			Descriptor: models.FilterDescriptor{
				FilterType: string(v.Output.Descriptor.FilterType),
				KernelSize: v.Output.Descriptor.KernelSize,
			},
		}
	}
	return resp
}
