package canon

import "strings"

// ComposeAddress joins address parts from the largest administrative unit
// down. Japanese addresses are written contiguously, so there is no
// separator; empty parts are skipped.
func ComposeAddress(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(p)
	}
	return b.String()
}
