package util

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewEntryID returns a sortable delivery log entry id.
func NewEntryID() string {
	t := time.Now().UTC()
	return "ntf_" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// NewConfigID returns a sortable provider config id.
func NewConfigID() string {
	t := time.Now().UTC()
	return "cfg_" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

func NowUTC() time.Time {
	return time.Now().UTC()
}

func NormalizePhone(p string) string {
	return strings.ReplaceAll(strings.TrimSpace(p), " ", "")
}
