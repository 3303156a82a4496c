package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-sign-classifier/internal/config"
	apperrors "go-sign-classifier/internal/errors"
	"go-sign-classifier/internal/logger"
	"go-sign-classifier/internal/observer"
	"go-sign-classifier/internal/predictor"
	"go-sign-classifier/internal/repository"
	"go-sign-classifier/internal/storage"
	"go-sign-classifier/pkg/models"
)

// Errors returned when an operation is not allowed in the current state.
// They leave the record untouched.
var (
	ErrNoImage           = apperrors.NewConflictError("Please upload an image or enter an image URL first.", nil)
	ErrRequestInFlight   = apperrors.NewConflictError("A prediction is already in progress.", nil)
	ErrInvalidTransition = apperrors.NewConflictError("That action is not available right now.", nil)
	ErrSessionClosed     = apperrors.NewConflictError("This session has ended. Please reload the page.", nil)
)

// Options tunes the background tasks of a controller
type Options struct {
	FetchTimeout   time.Duration
	PredictTimeout time.Duration
}

// Controller owns one session record. It is safe for concurrent use.
//
// File reads, URL probes and predictions run in the background. Each captures
// the record generation when it starts and its result is applied only if the
// generation is still current.
type Controller struct {
	id        string
	repo      repository.ImageRepository
	predictor predictor.Client
	publisher observer.Subject
	opts      Options

	mu     sync.Mutex
	rec    Record
	closed bool
	wg     sync.WaitGroup
}

// NewController creates a controller with an empty record. publisher may be nil.
func NewController(id string, repo repository.ImageRepository, client predictor.Client, publisher observer.Subject, opts Options) *Controller {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = config.DefaultImageFetchTimeout
	}
	if opts.PredictTimeout <= 0 {
		opts.PredictTimeout = config.DefaultPredictTimeout
	}
	return &Controller{
		id:        id,
		repo:      repo,
		predictor: client,
		publisher: publisher,
		opts:      opts,
		rec:       emptyRecord(0),
	}
}

// ID returns the session identifier
func (c *Controller) ID() string {
	return c.id
}

// Snapshot returns a copy of the current record
func (c *Controller) Snapshot() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.clone()
}

// Closed reports whether the session has ended
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Wait blocks until all background tasks started so far have finished
func (c *Controller) Wait() {
	c.wg.Wait()
}

// SelectFile validates f and reads it into the display image in the background.
// Validation failures are recorded in the input error channel.
func (c *Controller) SelectFile(ctx context.Context, f storage.SelectedFile) error {
	c.mu.Lock()
	if err := c.checkInputLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	gen := c.beginAttemptLocked()
	c.mu.Unlock()

	// Sniffing may read from the file, so it runs without the lock.
	contentType, err := c.repo.ValidateFile(f)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen) {
		return nil
	}
	if err != nil {
		c.rejectLocked(ctx, err, repository.MsgFileReadFailed, models.SourceLocalFile)
		return nil
	}

	c.rec.LoadingImage = true
	c.spawn(ctx, c.opts.FetchTimeout, func(taskCtx context.Context) {
		img, err := c.repo.ReadFile(taskCtx, f, contentType)
		c.finishLoad(taskCtx, gen, img, err, repository.MsgFileReadFailed, models.SourceLocalFile)
	})
	return nil
}

// RejectFile records a file attempt that failed before the file could be
// handed over, such as a request body over the upload limit. The previous
// image is dropped and cause is shown in the input error channel.
func (c *Controller) RejectFile(ctx context.Context, cause error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkInputLocked(); err != nil {
		return err
	}
	c.beginAttemptLocked()
	c.rejectLocked(ctx, cause, repository.MsgFileReadFailed, models.SourceLocalFile)
	return nil
}

// LoadURL checks that rawURL is well formed and then probes it in the
// background. A malformed URL is rejected before any network access.
func (c *Controller) LoadURL(ctx context.Context, rawURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkInputLocked(); err != nil {
		return err
	}
	gen := c.beginAttemptLocked()
	c.rec.URLInput = rawURL

	imageURL := strings.TrimSpace(rawURL)
	if err := c.repo.ValidateImageURL(imageURL); err != nil {
		c.rejectLocked(ctx, err, repository.MsgURLLoadFailed, models.SourceRemoteURL)
		return nil
	}

	c.rec.LoadingImage = true
	c.spawn(ctx, c.opts.FetchTimeout, func(taskCtx context.Context) {
		img, err := c.repo.LoadURL(taskCtx, imageURL)
		c.finishLoad(taskCtx, gen, img, err, repository.MsgURLLoadFailed, models.SourceRemoteURL)
	})
	return nil
}

// Submit sends the loaded image for prediction
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return ErrSessionClosed
	case c.rec.Phase == PhasePredicting:
		return ErrRequestInFlight
	case c.rec.Phase != PhaseInput:
		return ErrInvalidTransition
	case c.rec.DisplayImage == nil:
		return ErrNoImage
	}
	c.startPredictionLocked(ctx)
	return nil
}

// Retry re-issues the prediction for the stored image from the result panel
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return ErrSessionClosed
	case c.rec.Phase == PhasePredicting:
		return ErrRequestInFlight
	case c.rec.Phase != PhaseResult:
		return ErrInvalidTransition
	case c.rec.DisplayImage == nil:
		return ErrNoImage
	}
	c.startPredictionLocked(ctx)
	return nil
}

// BackToUpload returns to the input panel. The loaded image and its source are
// kept; the result and error are dropped.
func (c *Controller) BackToUpload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return ErrSessionClosed
	case c.rec.Phase == PhaseInput:
		return ErrInvalidTransition
	}
	c.rec.Generation++
	c.rec.clearOutcome()
	c.rec.Phase = PhaseInput
	c.publishLocked(ctx, observer.SessionEvent{EventType: observer.NavigatedBack, Success: true})
	return nil
}

// Reset clears the record and returns to the input panel from any phase
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSessionClosed
	}
	c.rec = emptyRecord(c.rec.Generation + 1)
	c.publishLocked(ctx, observer.SessionEvent{EventType: observer.SessionReset, Success: true})
	return nil
}

// Close ends the session. Late results of running tasks are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.rec.Generation++
	c.publishLocked(context.Background(), observer.SessionEvent{EventType: observer.SessionClosed, Success: true})
}

func (c *Controller) checkInputLocked() error {
	if c.closed {
		return ErrSessionClosed
	}
	if c.rec.Phase != PhaseInput {
		return ErrInvalidTransition
	}
	return nil
}

// beginAttemptLocked starts a new upload or URL attempt and returns its generation
func (c *Controller) beginAttemptLocked() uint64 {
	c.rec.Generation++
	c.rec.clearImage()
	c.rec.clearOutcome()
	c.rec.LoadingImage = false
	return c.rec.Generation
}

func (c *Controller) currentLocked(gen uint64) bool {
	return !c.closed && c.rec.Generation == gen
}

func (c *Controller) rejectLocked(ctx context.Context, err error, fallback string, source models.ImageSource) {
	message := apperrors.UserMessage(err, fallback)
	c.rec.clearImage()
	c.rec.LoadingImage = false
	c.rec.setError(ChannelInput, message)
	logger.WithError(err).WithField("session_id", c.id).Debug("Input rejected")
	c.publishLocked(ctx, observer.SessionEvent{
		EventType:    observer.ImageRejected,
		Source:       string(source),
		ErrorMessage: message,
	})
}

func (c *Controller) finishLoad(ctx context.Context, gen uint64, img *models.Image, err error, fallback string, source models.ImageSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen) {
		c.publishStaleLocked(ctx, source)
		return
	}
	if err != nil {
		c.rejectLocked(ctx, err, fallback, source)
		return
	}

	c.rec.LoadingImage = false
	c.rec.DisplayImage = img
	c.rec.ImageSource = img.Source
	c.rec.clearOutcome()
	c.publishLocked(ctx, observer.SessionEvent{
		EventType: observer.ImageLoaded,
		Source:    string(img.Source),
		Success:   true,
		Metadata: map[string]interface{}{
			"name": img.Name,
			"size": img.Size,
		},
	})
}

func (c *Controller) startPredictionLocked(ctx context.Context) {
	c.rec.Generation++
	gen := c.rec.Generation
	img := c.rec.DisplayImage
	c.rec.clearOutcome()
	c.rec.Phase = PhasePredicting
	c.publishLocked(ctx, observer.SessionEvent{EventType: observer.PredictionStarted, Source: string(img.Source), Success: true})

	c.spawn(ctx, c.opts.PredictTimeout, func(taskCtx context.Context) {
		start := time.Now()
		prediction, err := c.predict(taskCtx, img)
		c.finishPrediction(taskCtx, gen, img.Source, prediction, err, time.Since(start))
	})
}

func (c *Controller) predict(ctx context.Context, img *models.Image) (*models.Prediction, error) {
	if img.Source == models.SourceRemoteURL {
		return c.predictor.PredictURL(ctx, img.URL)
	}
	return c.predictor.PredictFile(ctx, img.Name, img.ContentType, img.Data)
}

func (c *Controller) finishPrediction(ctx context.Context, gen uint64, source models.ImageSource, prediction *models.Prediction, err error, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen) {
		c.publishStaleLocked(ctx, source)
		return
	}

	c.rec.Phase = PhaseResult
	event := observer.SessionEvent{Source: string(source), Duration: elapsed}
	if err != nil {
		message := apperrors.UserMessage(err, predictor.MsgServiceUnreachable)
		c.rec.setError(ChannelPrediction, message)
		event.EventType = observer.PredictionFailed
		event.ErrorMessage = message
		logger.WithError(err).WithField("session_id", c.id).Warn("Prediction failed")
	} else {
		c.rec.clearOutcome()
		c.rec.PredictionResult = prediction
		event.EventType = observer.PredictionCompleted
		event.Success = true
		event.Metadata = map[string]interface{}{
			"label":      prediction.Label,
			"confidence": prediction.Confidence,
		}
	}
	c.publishLocked(ctx, event)
}

func (c *Controller) publishStaleLocked(ctx context.Context, source models.ImageSource) {
	c.publishLocked(ctx, observer.SessionEvent{EventType: observer.StaleResultDiscarded, Source: string(source)})
}

// spawn runs task in the background. The task keeps the values of ctx but not
// its cancellation, because ctx is usually an HTTP request that ends first.
func (c *Controller) spawn(ctx context.Context, timeout time.Duration, task func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		task(taskCtx)
	}()
}

func (c *Controller) publishLocked(ctx context.Context, event observer.SessionEvent) {
	if c.publisher == nil {
		return
	}
	event.SessionID = c.id
	event.Timestamp = time.Now()
	event.Phase = c.rec.Phase.String()
	c.publisher.NotifyObservers(context.WithoutCancel(ctx), event)
}
