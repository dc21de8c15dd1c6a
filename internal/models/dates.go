package models

import "time"

// DateLayout is the wire and storage format for business dates.
const DateLayout = "2006-01-02"

// ValidDate reports whether s is a well-formed YYYY-MM-DD date. The check
// round-trips through time.Parse so unpadded forms like 2025-3-1 are
// rejected; date ranges compare lexicographically and need the padding.
func ValidDate(s string) bool {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return false
	}
	return d.Format(DateLayout) == s
}
