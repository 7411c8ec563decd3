package utils

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateToken returns an opaque URL-safe token of n random bytes,
// hex-encoded. Used for rotating iCal feed tokens.
func GenerateToken(n int) (string, error) {
	// Make a slice of n random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return hex.EncodeToString(byt), nil
}

// ContentID derives a stable 13-char id from an event's title and start
// date. Sources that provide no external id get the same id for the same
// event on every run, which is what makes re-imports idempotent.
func ContentID(title string, startsAt time.Time) string {
	components := parameterize(title)
	if !startsAt.IsZero() {
		components += "-" + startsAt.Format("2006-01-02")
	}

	sum := md5.Sum([]byte(components))
	return hex.EncodeToString(sum[:])[:13]
}

// parameterize lowercases and dashes a string the way URL slugs are built.
func parameterize(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// EventUID is the stable per-event UID used in exported iCal feeds.
func EventUID(eventID string) string {
	return fmt.Sprintf("event-%s@funcal", eventID)
}
