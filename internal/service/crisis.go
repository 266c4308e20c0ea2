package service

import "strings"

// CrisisDetected reports whether text contains a self-harm or violence
// indicator. Pure string scan, no I/O, so detection latency never depends on
// provider availability. It must run before any network call.
func CrisisDetected(text string) bool {
	lower := strings.ToLower(text)
	for _, indicator := range crisisIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
