package email

import "strings"

// Normalize trims surrounding whitespace. The address is otherwise sent as
// typed; the remote service owns matching rules.
func Normalize(address string) string {
	return strings.TrimSpace(address)
}

// Key is the case-folded address, used to group one participant's records.
func Key(address string) string {
	return strings.ToLower(Normalize(address))
}
