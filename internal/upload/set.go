// Package upload holds the ordered set of photos a session will send to the
// generator.
package upload

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"headshot/internal/domain"
)

// AdvisoryTooFew is returned by Remove when the set drops below the minimum.
var AdvisoryTooFew = fmt.Sprintf("Please upload at least %d images.", domain.MinImages)

var acceptedTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
}

// Set is an ordered collection of uploaded images. Appends may arrive from
// concurrently completing file reads, so every mutation takes the lock.
type Set struct {
	mu     sync.Mutex
	images []domain.UploadedImage
}

// NormalizeMediaType strips parameters and folds known aliases.
func NormalizeMediaType(mediaType string) string {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	switch mediaType {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/x-png":
		return "image/png"
	}
	return mediaType
}

// SniffMediaType derives the media type from the payload head when the
// client did not declare one.
func SniffMediaType(data []byte) string {
	return NormalizeMediaType(http.DetectContentType(data))
}

// Accepted reports whether mediaType is an image type the generator takes.
func Accepted(mediaType string) bool {
	_, ok := acceptedTypes[NormalizeMediaType(mediaType)]
	return ok
}

// NewImage validates and builds an UploadedImage.
func NewImage(data []byte, mediaType, filename string) (domain.UploadedImage, error) {
	mediaType = NormalizeMediaType(mediaType)
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = SniffMediaType(data)
	}
	if !Accepted(mediaType) {
		return domain.UploadedImage{}, domain.ErrInvalidType
	}
	if len(data) == 0 {
		return domain.UploadedImage{}, fmt.Errorf("%w: %s is empty", domain.ErrValidation, filename)
	}
	payload := make([]byte, len(data))
	copy(payload, data)
	return domain.UploadedImage{Data: payload, MediaType: mediaType, Filename: filename}, nil
}

// Add appends all images or none. Capacity is checked against the whole batch
// before any type check so a too-large selection is rejected up front.
func (s *Set) Add(images ...domain.UploadedImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.images)+len(images) > domain.MaxImages {
		return domain.ErrCapacityExceeded
	}
	for _, img := range images {
		if !Accepted(img.MediaType) {
			return domain.ErrInvalidType
		}
	}
	s.images = append(s.images, images...)
	return nil
}

// Append adds a single image. It is the only mutation meant to interleave
// with other in-flight appends.
func (s *Set) Append(img domain.UploadedImage) error {
	return s.Add(img)
}

// Reserve checks that n more images would fit without adding anything.
func (s *Set) Reserve(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.images)+n > domain.MaxImages {
		return domain.ErrCapacityExceeded
	}
	return nil
}

// Remove deletes the image at index. When fewer than the minimum remain the
// returned advisory is non-empty; it is not an error.
func (s *Set) Remove(index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.images) {
		return "", domain.ErrIndexOutOfRange
	}
	s.images = append(s.images[:index:index], s.images[index+1:]...)
	if len(s.images) < domain.MinImages {
		return AdvisoryTooFew, nil
	}
	return "", nil
}

// IsValid reports whether the set can be submitted for generation.
func (s *Set) IsValid() bool {
	n := s.Len()
	return n >= domain.MinImages && n <= domain.MaxImages
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// Images returns a copy of the images in insertion order.
func (s *Set) Images() []domain.UploadedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UploadedImage, len(s.images))
	copy(out, s.images)
	return out
}

func (s *Set) Clear() {
	s.mu.Lock()
	s.images = nil
	s.mu.Unlock()
}
