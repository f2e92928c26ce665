package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"

	"headshot/internal/domain"
	"headshot/internal/upload"
	"headshot/internal/workflow"
)

const multipartMemory = 32 << 20

// UploadImages accepts a multipart form with one or more "images" parts. The
// files are read concurrently and appended in completion order.
func (a *App) UploadImages(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	maxFile := a.Config.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxFile*domain.MaxImages+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			a.domainError(w, r, domain.ErrTooLarge)
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "expected multipart form with images")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "no images in form field \"images\"")
		return
	}
	if err := s.ReserveImages(len(files)); err != nil {
		a.domainError(w, r, err)
		return
	}

	errs := make([]error, len(files))
	var wg sync.WaitGroup
	for i, fh := range files {
		wg.Add(1)
		go func(i int, fh *multipart.FileHeader) {
			defer wg.Done()
			errs[i] = appendFile(s, fh, maxFile)
		}(i, fh)
	}
	wg.Wait()

	// Each file stands alone: the ones that passed stay appended and the
	// first failure is reported together with the resulting session.
	for _, err := range errs {
		if err != nil {
			a.sessionError(w, r, err, s.Snapshot())
			return
		}
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func appendFile(s *workflow.Session, fh *multipart.FileHeader, maxBytes int64) error {
	if fh.Size > maxBytes {
		return fmt.Errorf("%w: %s", domain.ErrTooLarge, fh.Filename)
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if int64(len(data)) > maxBytes {
		return fmt.Errorf("%w: %s", domain.ErrTooLarge, fh.Filename)
	}
	img, err := upload.NewImage(data, fh.Header.Get("Content-Type"), fh.Filename)
	if err != nil {
		return err
	}
	return s.AppendImage(img)
}
