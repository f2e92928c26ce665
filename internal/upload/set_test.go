package upload

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"headshot/internal/domain"
)

var pngHead = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func testImage(name string) domain.UploadedImage {
	return domain.UploadedImage{Data: []byte(name), MediaType: "image/png", Filename: name}
}

func TestIsValidBySize(t *testing.T) {
	for n := 0; n <= domain.MaxImages; n++ {
		var set Set
		for i := 0; i < n; i++ {
			if err := set.Append(testImage(fmt.Sprintf("%d.png", i))); err != nil {
				t.Fatalf("Append(%d) error: %v", i, err)
			}
		}
		want := n >= 3 && n <= 5
		if got := set.IsValid(); got != want {
			t.Fatalf("IsValid() with %d images = %v, want %v", n, got, want)
		}
	}
}

func TestAddSixthImageFails(t *testing.T) {
	var set Set
	for i := 0; i < 5; i++ {
		if err := set.Append(testImage(fmt.Sprintf("%d.png", i))); err != nil {
			t.Fatalf("Append(%d) error: %v", i, err)
		}
	}
	before := set.Images()
	if err := set.Append(testImage("6.png")); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("Append() error = %v, want ErrCapacityExceeded", err)
	}
	after := set.Images()
	if len(after) != len(before) {
		t.Fatalf("set changed: len %d, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i].Filename != before[i].Filename {
			t.Fatalf("image %d = %q, want %q", i, after[i].Filename, before[i].Filename)
		}
	}
}

func TestAddBatchIsAllOrNothing(t *testing.T) {
	var set Set
	if err := set.Add(testImage("a"), testImage("b"), testImage("c")); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := set.Add(testImage("d"), testImage("e"), testImage("f")); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("Add() error = %v, want ErrCapacityExceeded", err)
	}
	bad := domain.UploadedImage{Data: []byte("x"), MediaType: "application/pdf", Filename: "cv.pdf"}
	if err := set.Add(testImage("d"), bad); !errors.Is(err, domain.ErrInvalidType) {
		t.Fatalf("Add() error = %v, want ErrInvalidType", err)
	}
	if set.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", set.Len())
	}
}

func TestRemoveAdvisory(t *testing.T) {
	var set Set
	if err := set.Add(testImage("a"), testImage("b"), testImage("c"), testImage("d")); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	advisory, err := set.Remove(1)
	if err != nil || advisory != "" {
		t.Fatalf("Remove(1) = %q, %v; want no advisory", advisory, err)
	}
	names := []string{}
	for _, img := range set.Images() {
		names = append(names, img.Filename)
	}
	if fmt.Sprint(names) != "[a c d]" {
		t.Fatalf("order after remove = %v", names)
	}
	advisory, err = set.Remove(0)
	if err != nil {
		t.Fatalf("Remove(0) error: %v", err)
	}
	if advisory != AdvisoryTooFew {
		t.Fatalf("advisory = %q, want %q", advisory, AdvisoryTooFew)
	}
	if _, err := set.Remove(7); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("Remove(7) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestNewImage(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		mediaType string
		want      string
		wantErr   error
	}{
		{name: "declared png", data: pngHead, mediaType: "image/png", want: "image/png"},
		{name: "jpg alias", data: []byte{0xff, 0xd8, 0xff, 0xe0}, mediaType: "image/jpg", want: "image/jpeg"},
		{name: "params stripped", data: pngHead, mediaType: "image/png; charset=binary", want: "image/png"},
		{name: "sniffed when missing", data: pngHead, mediaType: "", want: "image/png"},
		{name: "text rejected", data: []byte("hello"), mediaType: "text/plain", wantErr: domain.ErrInvalidType},
		{name: "gif rejected", data: []byte("GIF89a"), mediaType: "image/gif", wantErr: domain.ErrInvalidType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := NewImage(tc.data, tc.mediaType, "photo")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("NewImage() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewImage() error: %v", err)
			}
			if img.MediaType != tc.want {
				t.Fatalf("MediaType = %q, want %q", img.MediaType, tc.want)
			}
		})
	}
}

func TestConcurrentAppendsDoNotClobber(t *testing.T) {
	var set Set
	var wg sync.WaitGroup
	for i := 0; i < domain.MaxImages; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := set.Append(testImage(fmt.Sprintf("%d.png", i))); err != nil {
				t.Errorf("Append(%d) error: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	if set.Len() != domain.MaxImages {
		t.Fatalf("Len() = %d, want %d", set.Len(), domain.MaxImages)
	}
}
