package extract

import (
	"regexp"
	"strconv"
)

// Variant labels advertise the pack multiplier as "<n> Plaques" (or the
// English "plates"), singular or plural.
var packPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:plaques?|plates?)\b`)

// supportedPackSizes is a strict allow-list. Anything else is unresolved:
// defaulting would silently under-generate physical plates, which is worse
// than failing the event.
var supportedPackSizes = map[int]struct{}{1: {}, 2: {}, 5: {}}

// ResolvePackSize infers the pack multiplier from a free-text label. The
// boolean reports whether a supported size was found.
func ResolvePackSize(label string) (int, bool) {
	match := packPattern.FindStringSubmatch(label)
	if match == nil {
		return 0, false
	}
	size, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	if _, ok := supportedPackSizes[size]; !ok {
		return 0, false
	}
	return size, true
}
