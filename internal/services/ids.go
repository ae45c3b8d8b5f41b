package services

import (
	"strings"

	"github.com/google/uuid"
)

// newID builds a prefixed short id like "WST-3F2A91BC".
func newID(prefix string) string {
	return prefix + "-" + randTag(8)
}

// randTag returns n uppercase hex characters for id uniqueness.
func randTag(n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(hex[:n])
}
