package recwire

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// parseTimestamp accepts RFC 3339 with optional fractional seconds and
// either a Z or a numeric offset.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

// formatTimestamp renders RFC 3339 with nanosecond precision, trimming
// trailing zeros. The zone offset is preserved; UTC renders as Z.
func formatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// parseUUID accepts only the canonical 36-character hyphenated form.
// The underlying parser is more lenient (braces, URN prefixes, bare
// hex), so the shape is checked first.
func parseUUID(s string) (uuid.UUID, bool) {
	if len(s) != 36 || s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return uuid.UUID{}, false
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, false
	}
	return u, true
}

func formatUUID(u uuid.UUID) string {
	return u.String()
}

// parseBytes decodes standard base64 with padding.
func parseBytes(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func formatBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
