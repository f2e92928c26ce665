package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrValidation       = errors.New("validation failed")
	ErrCapacityExceeded = fmt.Errorf("%w: you can upload a maximum of %d images", ErrValidation, MaxImages)
	ErrInvalidType      = fmt.Errorf("%w: only PNG, JPEG or WebP images are accepted", ErrValidation)
	ErrTooLarge         = fmt.Errorf("%w: image exceeds the upload size limit", ErrValidation)
	ErrIndexOutOfRange  = fmt.Errorf("%w: image index out of range", ErrValidation)
	ErrImageCount       = fmt.Errorf("%w: please upload %d to %d images and provide a style prompt", ErrValidation, MinImages, MaxImages)
	ErrEmptyPrompt      = fmt.Errorf("%w: please upload %d to %d images and provide a style prompt", ErrValidation, MinImages, MaxImages)
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrBusy             = errors.New("generation already in progress")
	ErrNoResult         = errors.New("no generated image available")
)

// RemoteGenerationError reports a failed call to the image generator or a
// response that carried no image. Message is safe to show to the user.
type RemoteGenerationError struct {
	Message string
	Err     error
}

func (e *RemoteGenerationError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *RemoteGenerationError) Unwrap() error { return e.Err }

// PersistenceError reports that a usage counter write could not be stored.
// It never invalidates an image that was already produced.
type PersistenceError struct {
	IdentityID string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist usage for %s: %v", e.IdentityID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
