package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"headshot/internal/domain"
	"headshot/internal/upload"
	"headshot/internal/usage"
	"headshot/internal/watermark"
)

// User-facing messages.
const (
	MsgInvalidSubmission = "Please upload 3 to 5 images and provide a style prompt."
	MsgTooManyImages     = "You can upload a maximum of 5 images."
	MsgInvalidType       = "Only PNG, JPEG or WebP images are accepted."
	MsgUsageUnavailable  = "We could not check your usage right now. Please try again."
	MsgUnknownFailure    = "An unknown error occurred while communicating with the AI."
	MsgUsageNotSaved     = "Your headshot is ready, but we could not update your usage count."
)

// Outcome describes how a Generate call ended when it did not fail.
type Outcome struct {
	State           domain.WorkflowState
	UpgradeRequired bool
	Text            string
	Warning         string
}

// Session is one user's pass through the workflow. All methods are safe for
// concurrent use; image appends may interleave freely.
type Session struct {
	ID         uuid.UUID
	IdentityID string
	CreatedAt  time.Time

	deps   *Deps
	images upload.Set

	mu         sync.Mutex
	state      domain.WorkflowState
	inFlight   bool
	prompt     string
	result     *domain.GeneratedImage
	resultText string
	lastError  string
	advisory   string
	warning    string
	lastActive time.Time
}

func newSession(deps *Deps, identityID string) *Session {
	now := deps.now()
	return &Session{
		ID:         uuid.New(),
		IdentityID: identityID,
		CreatedAt:  now,
		deps:       deps,
		state:      domain.StateUpload,
		prompt:     domain.DefaultPrompt,
		lastActive: now,
	}
}

// editableLocked reports whether the upload screen accepts changes.
func (s *Session) editableLocked() error {
	if s.inFlight || s.state != domain.StateUpload {
		return domain.ErrBusy
	}
	return nil
}

func (s *Session) touchLocked() {
	s.lastActive = s.deps.now()
}

// AddImages appends a batch; it is all-or-nothing.
func (s *Session) AddImages(images ...domain.UploadedImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if err := s.editableLocked(); err != nil {
		return err
	}
	if err := s.images.Add(images...); err != nil {
		s.lastError = UserMessage(err)
		return err
	}
	s.clearNoticesLocked()
	return nil
}

// ReserveImages fails fast when n more images would not fit.
func (s *Session) ReserveImages(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if err := s.editableLocked(); err != nil {
		return err
	}
	if err := s.images.Reserve(n); err != nil {
		s.lastError = UserMessage(err)
		return err
	}
	return nil
}

// AppendImage adds one image as its read completes. Reads of a multi-file
// upload call it from separate goroutines in completion order.
func (s *Session) AppendImage(img domain.UploadedImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if err := s.editableLocked(); err != nil {
		return err
	}
	if err := s.images.Append(img); err != nil {
		s.lastError = UserMessage(err)
		return err
	}
	s.clearNoticesLocked()
	return nil
}

func (s *Session) clearNoticesLocked() {
	s.lastError = ""
	if s.images.Len() >= domain.MinImages {
		s.advisory = ""
	}
}

// RemoveImage drops the image at index. The advisory is non-empty when fewer
// than the minimum remain.
func (s *Session) RemoveImage(index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if err := s.editableLocked(); err != nil {
		return "", err
	}
	advisory, err := s.images.Remove(index)
	if err != nil {
		return "", err
	}
	s.advisory = advisory
	s.lastError = ""
	return advisory, nil
}

// SetPrompt replaces the style prompt. Emptiness is checked at Generate.
func (s *Session) SetPrompt(prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.prompt = prompt
	return nil
}

// Reset returns to Upload with an empty set and the default prompt. It is
// refused while a generation is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if s.inFlight {
		return domain.ErrBusy
	}
	s.images.Clear()
	s.state = domain.StateUpload
	s.prompt = domain.DefaultPrompt
	s.result = nil
	s.resultText = ""
	s.lastError = ""
	s.advisory = ""
	s.warning = ""
	return nil
}

// Generate runs one attempt. Validation failures return an error wrapping
// domain.ErrValidation; an exhausted quota is not an error and reports
// UpgradeRequired; remote failures return *domain.RemoteGenerationError.
// The quota slot is reserved before the remote call so concurrent sessions of
// one identity cannot overrun it; usage is charged once, only after an image
// was produced.
func (s *Session) Generate(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	s.touchLocked()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}
	prompt := strings.TrimSpace(s.prompt)
	if !s.images.IsValid() || prompt == "" {
		err := domain.ErrImageCount
		if prompt == "" {
			err = domain.ErrEmptyPrompt
		}
		s.lastError = MsgInvalidSubmission
		s.mu.Unlock()
		return Outcome{State: domain.StateUpload}, err
	}
	images := s.images.Images()
	s.inFlight = true
	s.lastError = ""
	s.warning = ""
	s.mu.Unlock()

	log := s.deps.Logger.With().Str("identity", s.IdentityID).Str("session_id", s.ID.String()).Logger()

	allowed, err := s.deps.Ledger.Reserve(ctx, s.IdentityID)
	if err != nil {
		log.Error().Err(err).Msg("quota check failed")
		s.fail(MsgUsageUnavailable)
		return Outcome{State: domain.StateUpload}, err
	}
	if !allowed {
		log.Info().Msg("quota exhausted, upgrade required")
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
		s.deps.record(ctx, usage.Event{IdentityID: s.IdentityID, SessionID: s.ID, Type: usage.EventQuotaDeclined})
		return Outcome{State: domain.StateUpload, UpgradeRequired: true}, nil
	}
	tier, err := s.deps.Ledger.Tier(ctx, s.IdentityID)
	if err != nil {
		s.deps.Ledger.Release(s.IdentityID)
		log.Error().Err(err).Msg("plan lookup failed")
		s.fail(MsgUsageUnavailable)
		return Outcome{State: domain.StateUpload}, err
	}

	s.mu.Lock()
	s.state = domain.StateGenerating
	s.mu.Unlock()

	start := s.deps.now()
	img, text, err := s.produce(ctx, tier, images, prompt)
	latency := s.deps.now().Sub(start)
	if err != nil {
		s.deps.Ledger.Release(s.IdentityID)
		msg := MsgUnknownFailure
		var remote *domain.RemoteGenerationError
		if errors.As(err, &remote) && remote.Message != "" {
			msg = remote.Message
		}
		log.Warn().Err(err).Dur("latency", latency).Msg("generation failed")
		s.fail(msg)
		s.deps.record(ctx, usage.Event{
			IdentityID: s.IdentityID, SessionID: s.ID, Type: usage.EventGenerate,
			Latency: latency, Props: map[string]any{"tier": string(tier), "error": msg},
		})
		return Outcome{State: domain.StateUpload}, err
	}

	var warning string
	if _, err := s.deps.Ledger.Increment(ctx, s.IdentityID); err != nil {
		log.Warn().Err(err).Msg("generation succeeded but usage was not recorded")
		warning = MsgUsageNotSaved
	}

	s.mu.Lock()
	s.result = img
	s.resultText = text
	s.warning = warning
	s.state = domain.StateResult
	s.inFlight = false
	s.touchLocked()
	s.mu.Unlock()

	log.Info().Str("tier", string(tier)).Dur("latency", latency).Msg("headshot generated")
	s.deps.record(ctx, usage.Event{
		IdentityID: s.IdentityID, SessionID: s.ID, Type: usage.EventGenerate, Success: true,
		Latency: latency, Props: map[string]any{"tier": string(tier), "watermarked": tier.IsFree()},
	})
	return Outcome{State: domain.StateResult, Text: text, Warning: warning}, nil
}

// produce calls the generator and watermarks free-tier output.
func (s *Session) produce(ctx context.Context, tier domain.PlanTier, images []domain.UploadedImage, prompt string) (*domain.GeneratedImage, string, error) {
	res, err := s.deps.Generator.GenerateHeadshot(ctx, images, prompt)
	if err != nil {
		return nil, "", err
	}
	if res.Image == nil || len(res.Image.Data) == 0 {
		msg := strings.TrimSpace(res.Text)
		if msg == "" {
			msg = domain.FallbackGenerationMessage
		}
		return nil, "", &domain.RemoteGenerationError{Message: msg}
	}
	img := *res.Image
	if tier.IsFree() {
		marked, err := s.deps.Watermarker.Apply(img.Data, img.MediaType)
		if err != nil {
			return nil, "", &domain.RemoteGenerationError{
				Message: "Failed to generate headshot: the returned image could not be processed.",
				Err:     err,
			}
		}
		img = domain.GeneratedImage{Data: marked, MediaType: "image/png"}
	}
	return &img, res.Text, nil
}

func (s *Session) fail(msg string) {
	s.mu.Lock()
	s.state = domain.StateUpload
	s.inFlight = false
	s.lastError = msg
	s.touchLocked()
	s.mu.Unlock()
}

// Download returns the current result as ai-headshot.png.
func (s *Session) Download() (string, []byte, error) {
	s.mu.Lock()
	s.touchLocked()
	img := s.result
	s.mu.Unlock()
	if img == nil {
		return "", nil, domain.ErrNoResult
	}
	data, err := watermark.ToPNG(img.Data, img.MediaType)
	if err != nil {
		return "", nil, err
	}
	return domain.DownloadFilename, data, nil
}

// ImageView describes one uploaded image without its payload.
type ImageView struct {
	Index     int    `json:"index"`
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	Size      int    `json:"size"`
}

// Snapshot is the view model of the session's current screen.
type Snapshot struct {
	ID         uuid.UUID            `json:"id"`
	State      domain.WorkflowState `json:"state"`
	Prompt     string               `json:"prompt"`
	Images     []ImageView          `json:"images"`
	CanSubmit  bool                 `json:"canSubmit"`
	HasResult  bool                 `json:"hasResult"`
	ResultText string               `json:"resultText,omitempty"`
	Error      string               `json:"error,omitempty"`
	Advisory   string               `json:"advisory,omitempty"`
	Warning    string               `json:"warning,omitempty"`
	CreatedAt  time.Time            `json:"createdAt"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	images := s.images.Images()
	views := make([]ImageView, len(images))
	for i, img := range images {
		views[i] = ImageView{Index: i, Filename: img.Filename, MediaType: img.MediaType, Size: len(img.Data)}
	}
	state := s.state
	return Snapshot{
		ID:         s.ID,
		State:      state,
		Prompt:     s.prompt,
		Images:     views,
		CanSubmit:  state == domain.StateUpload && !s.inFlight && s.images.IsValid() && strings.TrimSpace(s.prompt) != "",
		HasResult:  s.result != nil,
		ResultText: s.resultText,
		Error:      s.lastError,
		Advisory:   s.advisory,
		Warning:    s.warning,
		CreatedAt:  s.CreatedAt,
	}
}

// State returns the current workflow state.
func (s *Session) State() domain.WorkflowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) idleSince(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive), s.inFlight
}

// UserMessage maps workflow errors to the text shown on the upload screen.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrCapacityExceeded):
		return MsgTooManyImages
	case errors.Is(err, domain.ErrInvalidType):
		return MsgInvalidType
	case errors.Is(err, domain.ErrValidation):
		return MsgInvalidSubmission
	}
	return err.Error()
}
