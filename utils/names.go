package utils

import (
	"strings"

	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
)

var nameFolder = cases.Fold()

// TrackSlug normalizes a track name (from the calendar or a simulator
// payload) into the slug form used for event matching. Simulator prefixes
// like "ks_" or "rt_" are stripped so DLC track ids line up with the
// league's track names.
func TrackSlug(name string) string {
	n := strings.TrimSpace(unidecode.Unidecode(name))
	lower := strings.ToLower(n)
	for _, prefix := range []string{"ks_", "rt_", "acu_"} {
		if strings.HasPrefix(lower, prefix) {
			n = n[len(prefix):]
			break
		}
	}
	return slug.Make(n)
}

// FoldName case-folds a driver display name for comparison. Used by
// identity resolution as the fallback after platform-id matching.
func FoldName(name string) string {
	return nameFolder.String(strings.Join(strings.Fields(name), " "))
}
