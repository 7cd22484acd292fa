// Package runid implements the run identifier scheme shared by the job
// tracker and the admission controller. A base run ID is a UTC timestamp
// (YYMMDD-HHMMSS); per-client work within a run carries the client ID as a
// trailing suffix, e.g. "250924-001530-Guy-Wilson". Client IDs may themselves
// contain hyphens, so suffix handling works on whole suffix strings, never by
// splitting on "-".
package runid

import (
	"strings"
	"time"
)

// baseLayout formats a timestamp as YYMMDD-HHMMSS.
const baseLayout = "060102-150405"

// baseLen is the length of a bare timestamp run ID.
const baseLen = len("060102-150405")

// Format classifies a run ID for diagnostics.
type Format string

const (
	// FormatTimestamp is a bare YYMMDD-HHMMSS ID.
	FormatTimestamp Format = "timestamp"
	// FormatTimestampSuffixed is a timestamp ID with a client suffix.
	FormatTimestampSuffixed Format = "timestamp-client"
	// FormatExternal is any non-empty ID we did not mint ourselves.
	FormatExternal Format = "external"
)

// Info describes a parsed run ID.
type Info struct {
	Format    Format
	BaseRunID string
	ClientID  string
}

// Generate returns the base run ID for the given instant. IDs within the
// same second collide; callers needing sub-second uniqueness must treat the
// ID as a time bucket and pair it with their own sequence.
func Generate(now time.Time) string {
	return now.UTC().Format(baseLayout)
}

// AddClientSuffix returns runID carrying exactly one trailing "-clientID"
// suffix. Already-suffixed IDs pass through unchanged, a different client's
// suffix is replaced, and the double-suffix pathology seen in legacy rows
// ("...-Guy-Wilson-Guy-Wilson") is collapsed to a single suffix.
func AddClientSuffix(runID, clientID string) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", ErrEmptyRunID
	}
	if strings.TrimSpace(clientID) == "" {
		return "", ErrEmptyClientID
	}

	marker := "-" + clientID
	for strings.HasSuffix(runID, marker+marker) {
		runID = strings.TrimSuffix(runID, marker)
	}
	if strings.HasSuffix(runID, marker) {
		return runID, nil
	}

	// A recognizable timestamp base lets us replace another client's suffix
	// instead of stacking ours on top of it.
	if base, ok := timestampBase(runID); ok {
		return base + marker, nil
	}
	return runID + marker, nil
}

// StripClientSuffix removes the trailing client suffix from a timestamp run
// ID. External-format IDs are returned unchanged because the suffix boundary
// is not recoverable. Idempotent.
func StripClientSuffix(runID string) string {
	if base, ok := timestampBase(runID); ok {
		return base
	}
	return runID
}

// DetectFormat classifies a run ID. Returns nil for empty input. Diagnostics
// only; admission and tracking never branch on the result.
func DetectFormat(runID string) *Info {
	if runID == "" {
		return nil
	}
	base, ok := timestampBase(runID)
	if !ok {
		return &Info{Format: FormatExternal, BaseRunID: runID}
	}
	if len(runID) == baseLen {
		return &Info{Format: FormatTimestamp, BaseRunID: base}
	}
	return &Info{
		Format:    FormatTimestampSuffixed,
		BaseRunID: base,
		ClientID:  runID[baseLen+1:],
	}
}

// Validate reports whether runID is usable as a tracking key.
func Validate(runID string) error {
	if strings.TrimSpace(runID) == "" {
		return ErrEmptyRunID
	}
	return nil
}

// timestampBase returns the YYMMDD-HHMMSS prefix when runID is in our
// timestamp format, either bare or suffixed.
func timestampBase(runID string) (string, bool) {
	if len(runID) < baseLen {
		return "", false
	}
	if len(runID) > baseLen && runID[baseLen] != '-' {
		return "", false
	}
	base := runID[:baseLen]
	if _, err := time.Parse(baseLayout, base); err != nil {
		return "", false
	}
	return base, true
}
