// Package timeparse normalizes the two timestamp encodings that
// coexist in the sessions table: raw epoch seconds written by this bot
// and ISO-style strings left behind by the previous deployment.
package timeparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts tried for string-encoded rows that carry no zone offset; the
// deployment's fixed zone is attached to those.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// EpochSeconds converts a stored timestamp value to epoch seconds.
// Integer values are used directly; anything else is parsed as a
// timestamp string, with an absent offset interpreted in loc. A value
// that parses as neither is an error - totals must not be silently
// corrupted by a bad row.
func EpochSeconds(raw string, loc *time.Location) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("timeparse: empty timestamp")
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.Unix(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.Unix(), nil
		}
	}

	return 0, fmt.Errorf("timeparse: %q is neither epoch seconds nor a timestamp", raw)
}

// IsEpoch reports whether raw is already integer-encoded. The startup
// backfill uses it to find legacy rows.
func IsEpoch(raw string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	return err == nil
}
