package validate

import "strings"

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// Email performs a shallow shape check. The store's uniqueness constraint and
// the login flow are the real gatekeepers.
func Email(value string) bool {
	trimmed := strings.TrimSpace(value)
	at := strings.Index(trimmed, "@")
	if at <= 0 || at == len(trimmed)-1 {
		return false
	}
	return !strings.ContainsAny(trimmed, " \t")
}
