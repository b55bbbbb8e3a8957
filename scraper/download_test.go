package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-scrape-images/models"
	"github.com/aluiziolira/go-scrape-images/parser"
)

func TestDownloaderIdempotent(t *testing.T) {
	dir := t.TempDir()
	stub := newStubFetcher()
	const imageURL = "http://example.test/uploads/trailer.jpg"
	payload := []byte{0xff, 0xd8, 0xff, 0xe0, 'j', 'p', 'g'}
	stub.bodies[imageURL] = payload

	d := NewDownloader(stub, dir)

	first := d.Download(context.Background(), imageURL)
	if first.Status != models.StatusDownloaded || !first.OK() {
		t.Fatalf("first status = %q (%v), want downloaded", first.Status, first.Err)
	}
	if first.Bytes != int64(len(payload)) {
		t.Fatalf("bytes = %d, want %d", first.Bytes, len(payload))
	}

	stub.bodies[imageURL] = []byte("different bytes")
	second := d.Download(context.Background(), imageURL)
	if second.Status != models.StatusSkipped || !second.OK() {
		t.Fatalf("second status = %q, want skipped", second.Status)
	}
	if got := stub.calls[imageURL]; got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}

	onDisk, err := os.ReadFile(filepath.Join(dir, "trailer.jpg"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(onDisk, payload) {
		t.Fatalf("file was overwritten: %q", onDisk)
	}
}

func TestDownloaderSyntheticFilename(t *testing.T) {
	dir := t.TempDir()
	stub := newStubFetcher()
	const imageURL = "https://x/gallery/photo"
	stub.bodies[imageURL] = []byte("raw")

	result := NewDownloader(stub, dir).Download(context.Background(), imageURL)
	want := fmt.Sprintf("image_%d.jpg", parser.FilenameHash(imageURL))
	if result.Filename != want {
		t.Fatalf("filename = %q, want %q", result.Filename, want)
	}
	if _, err := os.Stat(filepath.Join(dir, want)); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
}

func TestDownloaderFetchFailure(t *testing.T) {
	dir := t.TempDir()
	stub := newStubFetcher()
	const imageURL = "http://example.test/missing.png"

	result := NewDownloader(stub, dir).Download(context.Background(), imageURL)
	if result.Status != models.StatusFailed || result.OK() {
		t.Fatalf("status = %q, want failed", result.Status)
	}
	var fetchErr ErrImageFetch
	if !errors.As(result.Err, &fetchErr) || fetchErr.Filename != "missing.png" {
		t.Fatalf("err = %v, want ErrImageFetch for missing.png", result.Err)
	}
	if got := errorTypeLabel(result.Err); got != "not_found" {
		t.Fatalf("label = %q, want not_found", got)
	}
	if result.Error == "" {
		t.Fatalf("error text should be populated")
	}
	if _, err := os.Stat(filepath.Join(dir, "missing.png")); !os.IsNotExist(err) {
		t.Fatalf("no file should be written on failure")
	}
}

func TestDownloaderFilesystemFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	stub := newStubFetcher()
	const imageURL = "http://example.test/a.gif"
	stub.bodies[imageURL] = []byte("GIF89a")

	result := NewDownloader(stub, dir).Download(context.Background(), imageURL)
	if result.Status != models.StatusFailed {
		t.Fatalf("status = %q, want failed", result.Status)
	}
	if got := errorTypeLabel(result.Err); got != "filesystem" {
		t.Fatalf("label = %q, want filesystem (err=%v)", got, result.Err)
	}
}
