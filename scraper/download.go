package scraper

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aluiziolira/go-scrape-images/models"
	"github.com/aluiziolira/go-scrape-images/parser"
)

// Downloader stores images under a single output directory.
type Downloader struct {
	fetcher   Fetcher
	outputDir string
	now       func() time.Time
}

// NewDownloader returns a downloader writing into outputDir. The directory
// must already exist.
func NewDownloader(fetcher Fetcher, outputDir string) *Downloader {
	return &Downloader{
		fetcher:   fetcher,
		outputDir: outputDir,
		now:       time.Now,
	}
}

// Download makes sure the bytes behind imageURL exist on disk. An existing
// file is never overwritten and counts as success without a request.
func (d *Downloader) Download(ctx context.Context, imageURL string) *models.DownloadResult {
	filename := parser.ImageFilename(imageURL)
	path := filepath.Join(d.outputDir, filename)
	result := &models.DownloadResult{
		URL:      imageURL,
		Filename: filename,
		Path:     path,
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		slog.Info("already exists, skipping", slog.String("filename", filename))
		return d.finish(result, models.StatusSkipped, nil)
	case !errors.Is(err, fs.ErrNotExist):
		return d.fail(result, ErrFilesystem{Path: path, Err: err})
	}

	data, err := d.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return d.fail(result, ErrImageFetch{URL: imageURL, Filename: filename, Err: err})
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return d.fail(result, ErrFilesystem{Path: path, Err: err})
	}

	result.Bytes = int64(len(data))
	slog.Info("downloaded",
		slog.String("filename", filename),
		slog.Int64("bytes", result.Bytes),
	)
	return d.finish(result, models.StatusDownloaded, nil)
}

func (d *Downloader) fail(result *models.DownloadResult, err error) *models.DownloadResult {
	slog.Error("download failed",
		slog.String("filename", result.Filename),
		slog.String("category", errorTypeLabel(err)),
		slog.Any("error", err),
	)
	return d.finish(result, models.StatusFailed, err)
}

func (d *Downloader) finish(result *models.DownloadResult, status models.DownloadStatus, err error) *models.DownloadResult {
	result.Status = status
	result.Err = err
	if err != nil {
		result.Error = err.Error()
	}
	result.FinishedAt = d.now()
	return result
}
