// Package image resolves the disk image to apply for a provisioning intent.
//
// Resolution is strict: the caller must supply both the image URL and the
// checksum URL, and no default image is ever substituted. The resolver only
// fills in what can be derived, the disk format from the URL extension and
// the checksum algorithm.
package image

import (
	"path"
	"strings"

	"metalhook/internal/event"
)

// DefaultChecksumType is assumed when the caller provides explicit URLs
// without naming an algorithm.
const DefaultChecksumType = "sha256"

// Resolved is the image configuration to be written to the host spec.
type Resolved struct {
	URL          string
	Checksum     string
	ChecksumType string
	Format       string
}

// Resolve validates and completes the image fields of a provisioning
// intent. Missing imageUrl or checksumUrl fails the intent before any
// external call is made.
func Resolve(intent *event.Intent) (*Resolved, error) {
	if intent.ImageURL == "" {
		return nil, &event.ValidationError{Reason: "imageUrl is required for provisioning"}
	}
	if intent.ChecksumURL == "" {
		return nil, &event.ValidationError{Reason: "checksumUrl is required for provisioning"}
	}

	format := intent.ImageFormat
	if format == "" {
		format = FormatFromURL(intent.ImageURL)
	}

	return &Resolved{
		URL:          intent.ImageURL,
		Checksum:     intent.ChecksumURL,
		ChecksumType: DefaultChecksumType,
		Format:       format,
	}, nil
}

// FormatFromURL derives the disk image format from the URL's file
// extension. Unknown extensions fall back to raw.
func FormatFromURL(url string) string {
	switch strings.ToLower(path.Ext(url)) {
	case ".qcow2":
		return "qcow2"
	case ".vmdk":
		return "vmdk"
	case ".iso":
		return "iso"
	default:
		return "raw"
	}
}
