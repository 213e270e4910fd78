package models

import "time"

// BackupInfo describes one timestamped copy of the data directory.
type BackupInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Files     int       `json:"files"`
	SizeBytes int64     `json:"size_bytes"`
}

// ImportReport summarises a bulk load of the interchange files.
type ImportReport struct {
	Students    int            `json:"students"`
	Courses     int            `json:"courses"`
	Enrollments int            `json:"enrollments"`
	Instructors int            `json:"instructors"`
	Skipped     []SkippedRow   `json:"skipped,omitempty"`
	Counts      map[string]int `json:"registry_counts"`
}

// SkippedRow records a malformed interchange row that was dropped.
type SkippedRow struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ExportReport summarises files written by an export.
type ExportReport struct {
	Dir   string         `json:"dir"`
	Files []string       `json:"files"`
	Rows  map[string]int `json:"rows"`
	Links []DownloadLink `json:"links,omitempty"`
}

// DownloadLink is a signed, expiring URL for one exported file.
type DownloadLink struct {
	File      string    `json:"file"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
