// Package asset implements the ingestion pipeline and the metadata records
// it produces.
package asset

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/assetvault/service/internal/apperr"
	"github.com/assetvault/service/internal/media"
)

// Asset is the metadata record of one stored object.
type Asset struct {
	ID               int64        `json:"id"`
	OriginalFilename string       `json:"original_filename"`
	Bucket           string       `json:"bucket"`
	ObjectKey        string       `json:"object_key"`
	PublicURL        *string      `json:"public_url"`
	SizeBytes        int64        `json:"size_bytes"`
	Width            *int         `json:"width"`
	Height           *int         `json:"height"`
	Format           media.Format `json:"format" swaggertype:"string" enums:"png,jpg,webp,bin"`
	Tags             []string     `json:"tags"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// NewAsset holds the fields written on insert. Id and timestamps are
// assigned by the database.
type NewAsset struct {
	OriginalFilename string
	Bucket           string
	ObjectKey        string
	PublicURL        *string
	SizeBytes        int64
	Width            *int
	Height           *int
	Format           media.Format
	Tags             []string
}

// ListQuery filters and paginates List.
type ListQuery struct {
	Bucket string
	Tag    string
	Format string
	Page   int
	Size   int
	// Ascending sorts by created_at oldest first.
	Ascending bool
}

// Offset is the number of rows skipped for the requested page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Size
}

// ListResult is one page of records plus the unpaginated total.
type ListResult struct {
	Total int64   `json:"total"`
	Page  int     `json:"page"`
	Size  int     `json:"size"`
	Items []Asset `json:"items"`
}

// Stats aggregates all records.
type Stats struct {
	TotalImages    int64            `json:"total_images"`
	TotalSizeBytes int64            `json:"total_size_bytes"`
	ByFormat       map[string]int64 `json:"by_format"`
	ByBucket       map[string]int64 `json:"by_bucket"`
	UploadsByDay   []DayCount       `json:"uploads_by_day"`
}

// DayCount is the number of uploads on one UTC day (YYYY-MM-DD).
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Store persists asset records.
type Store interface {
	Create(ctx context.Context, in NewAsset) (*Asset, error)
	GetByID(ctx context.Context, id int64) (*Asset, error)
	List(ctx context.Context, q ListQuery) (*ListResult, error)
	// HasRecord reports whether a record references the object.
	HasRecord(ctx context.Context, bucket, key string) (bool, error)
	// Stats returns the aggregates. UploadsByDay only holds days since
	// `since` that have at least one upload.
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

// MaxFilenameLength is the longest original filename a record can hold, in
// characters.
const MaxFilenameLength = 255

// validateFilename rejects names the database cannot store.
func validateFilename(name string) error {
	if !validText(name) {
		return apperr.Invalid("filename must be valid UTF-8 text")
	}
	if utf8.RuneCountInString(name) > MaxFilenameLength {
		return apperr.Invalid("filename must be at most %d characters", MaxFilenameLength)
	}
	return nil
}

func validateTags(tags []string) error {
	for _, t := range tags {
		if !validText(t) {
			return apperr.Invalid("tags must be valid UTF-8 text")
		}
	}
	return nil
}

// validText reports whether s is storable in a PostgreSQL text column.
func validText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// ParseTags splits a comma separated tag list, trimming whitespace and
// dropping empty entries. Order and duplicates are kept.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
