// Package annotation provides the expiry-date annotation model and a
// multi-writer-safe JSON store with file locking, backups and atomic saves.
package annotation

import (
	"errors"
	"time"

	"expiry-annotator/pkg/geometry"
)

// Status is the operator decision recorded for a crop.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAnnotated Status = "annotated"
	StatusIllegible Status = "illegible"
)

// Sentinel errors surfaced by the store.
var (
	// ErrLockTimeout indicates the cross-process file lock could not be
	// acquired within its timeout.
	ErrLockTimeout = errors.New("annotation: lock acquisition timed out")

	// ErrIntegrity indicates the persisted file failed structural validation.
	ErrIntegrity = errors.New("annotation: annotations file failed integrity check")

	// ErrNoBackup indicates a restore was requested but no backup exists.
	ErrNoBackup = errors.New("annotation: no backup available")
)

// Annotation is one operator decision for a single labeled region.
// The crop id is the key in the persisted collection, not a field of
// the serialized entry.
type Annotation struct {
	CropID        string          `json:"-"`
	ImageName     string          `json:"image"`
	Subset        string          `json:"subset"`
	BoxIndex      int             `json:"box_index"`
	ClassID       int             `json:"class_id"`
	ClassName     string          `json:"class_name"`
	Region        geometry.Region `json:"annotation"`
	ExpiryDate    string          `json:"expiry_date,omitempty"`
	ExpiryDateRaw string          `json:"expiry_date_raw,omitempty"`
	Status        Status          `json:"status"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewAnnotated builds an annotation carrying a normalized expiry date.
func NewAnnotated(cropID, imageName, subset string, boxIndex, classID int, className string, region geometry.Region, date, raw string) Annotation {
	return Annotation{
		CropID:        cropID,
		ImageName:     imageName,
		Subset:        subset,
		BoxIndex:      boxIndex,
		ClassID:       classID,
		ClassName:     className,
		Region:        region,
		ExpiryDate:    date,
		ExpiryDateRaw: raw,
		Status:        StatusAnnotated,
		Timestamp:     time.Now(),
	}
}

// NewIllegible builds an annotation flagging the region as unreadable.
func NewIllegible(cropID, imageName, subset string, boxIndex, classID int, className string, region geometry.Region) Annotation {
	return Annotation{
		CropID:    cropID,
		ImageName: imageName,
		Subset:    subset,
		BoxIndex:  boxIndex,
		ClassID:   classID,
		ClassName: className,
		Region:    region,
		Status:    StatusIllegible,
		Timestamp: time.Now(),
	}
}
