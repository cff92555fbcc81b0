// Package support holds small helpers shared by the use-case handlers.
package support

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock returns now() or time.Now in UTC.
func Clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}

// NormalizePage clamps a limit/offset pair to the public bounds.
func NormalizePage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = 20
	case limit > 100:
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ObjectKey builds a unique storage key under prefix, keeping the extension of fileName.
func ObjectKey(prefix, fileName string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if len(ext) > 8 {
		ext = ""
	}
	return strings.Trim(prefix, "/") + "/" + uuid.NewString() + ext
}
