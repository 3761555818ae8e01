package conversation

import "strings"

// Cancellation sentinels. SentinelZero only cancels while an amount or detail is expected.
const (
	SentinelCancel = "cancel"
	SentinelZero   = "0"
)

// NormalizeInput trims and lower-cases text so sentinels match regardless of case.
func NormalizeInput(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// IsSentinel reports whether normalised input is one of the cancellation sentinels.
func IsSentinel(in string) bool {
	return in == SentinelCancel || in == SentinelZero
}
