// Package clock provides the ID formatting primitives shared by the
// repository's monotonic commit/report counters and the run orchestrator's
// run/variant identifiers.
package clock

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatID renders a monotonic counter as a zero-padded, prefixed ID, e.g.
// FormatID("c", 1) == "c0001".
func FormatID(prefix string, n int) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}

// ParseIDNumber extracts the numeric suffix from an ID of the given prefix.
func ParseIDNumber(id, prefix string) (int, error) {
	trimmed := strings.TrimPrefix(id, prefix)
	if trimmed == id && prefix != "" {
		return 0, fmt.Errorf("clock: id %q does not carry prefix %q", id, prefix)
	}
	return strconv.Atoi(trimmed)
}

// NewRunID mints a process-unique run identifier: a "run_" prefix over a
// hex-encoded random suffix. Runs are never persisted, so no global
// monotonic counter is needed here.
func NewRunID() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "run_" + hex.EncodeToString(buf), nil
}

// VariantID renders the 1-indexed variant ordinal as "v01".."v0N".
func VariantID(ordinal int) string {
	return fmt.Sprintf("v%02d", ordinal)
}

// Now returns the current UTC time truncated to millisecond precision, the
// resolution the wire contract and storage layer operate at.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
