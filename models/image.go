// Package models defines data structures for the scraper.
package models

import "time"

// DownloadStatus is the outcome of a single image download.
type DownloadStatus string

const (
	StatusDownloaded DownloadStatus = "downloaded"
	StatusSkipped    DownloadStatus = "skipped"
	StatusFailed     DownloadStatus = "failed"
)

// PageResult holds the images found on one scanned page.
// A non-nil Err means the page contributed nothing.
type PageResult struct {
	URL    string
	Images []string
	Err    error
}

// DownloadResult represents the outcome for one image URL.
type DownloadResult struct {
	URL        string         `csv:"url" json:"url"`
	Filename   string         `csv:"filename" json:"filename"`
	Path       string         `csv:"path" json:"path"`
	Status     DownloadStatus `csv:"status" json:"status"`
	Bytes      int64          `csv:"bytes" json:"bytes"`
	Error      string         `csv:"error" json:"error,omitempty"`
	FinishedAt time.Time      `csv:"finished_at" json:"finished_at"`

	Err error `csv:"-" json:"-"`
}

// OK reports whether the image is present on disk after the attempt.
func (r *DownloadResult) OK() bool {
	return r != nil && r.Status != StatusFailed
}

// ScraperResult holds the overall result of a run.
type ScraperResult struct {
	StartTime    time.Time
	EndTime      time.Time
	PagesChecked int
	PageErrors   int
	ImagesFound  int
	Downloaded   int // includes skipped files
	Skipped      int
	Failed       int
	OutputDir    string
	FailedURLs   []string
	ErrorsByType map[string]int
	RequestCount int
	Interrupted  bool
}
