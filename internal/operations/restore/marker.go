package restore

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
)

// MarkerStatus is the restore status carried by an x-amz-restore header.
type MarkerStatus int

const (
	// MarkerAbsent means no restore was ever requested, or it expired.
	MarkerAbsent MarkerStatus = iota
	// MarkerInProgress means a restore job is running.
	MarkerInProgress
	// MarkerComplete means a restored copy is readable.
	MarkerComplete
)

// Marker is a parsed x-amz-restore header.
type Marker struct {
	Status MarkerStatus

	// Expiry is when the restored copy is removed again. Zero unless the
	// backend reported an expiry date.
	Expiry time.Time
}

var (
	ongoingPattern = regexp.MustCompile(`ongoing-request\s*=\s*"(true|false)"`)
	expiryPattern  = regexp.MustCompile(`expiry-date\s*=\s*"([^"]+)"`)
)

// ParseMarker parses the value of the x-amz-restore header. A nil value is
// MarkerAbsent. A value without a recognizable ongoing-request attribute
// yields ErrInvalidRestoreMarker.
func ParseMarker(value *string) (Marker, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return Marker{Status: MarkerAbsent}, nil
	}

	match := ongoingPattern.FindStringSubmatch(*value)
	if match == nil {
		return Marker{}, fmt.Errorf("%w: %q", errors.ErrInvalidRestoreMarker, *value)
	}

	if match[1] == "true" {
		return Marker{Status: MarkerInProgress}, nil
	}

	marker := Marker{Status: MarkerComplete}
	if m := expiryPattern.FindStringSubmatch(*value); m != nil {
		expiry, err := http.ParseTime(m[1])
		if err != nil {
			return Marker{}, fmt.Errorf("%w: expiry-date %q", errors.ErrInvalidRestoreMarker, m[1])
		}
		marker.Expiry = expiry
	}

	return marker, nil
}
