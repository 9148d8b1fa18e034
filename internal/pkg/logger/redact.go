package logger

import "strings"

// RedactEmail masks an address for safe logging, keeping the domain so
// MX and deny-list decisions stay debuggable.
//
//	"john.doe@example.com" → "jo***@example.com"
//	"ab@example.com"       → "***@example.com"
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}
