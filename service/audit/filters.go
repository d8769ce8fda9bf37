package audit

import (
	"regexp"
	"strings"
)

// Redacted replaces sensitive values. Filters are idempotent: redacting an
// already-redacted value leaves it unchanged.
const Redacted = "[REDACTED]"

// Filter redacts sensitive data from an event in place.
type Filter func(event *Event)

// sensitiveKeys are redacted by key name wherever they appear in Details or
// Metadata, at any nesting depth.
var sensitiveKeys = []string{
	"password", "passwd", "secret", "api_key", "apikey", "token",
	"authorization", "credential", "private_key", "access_key", "session_id",
}

// piiKeys carry personally identifiable information.
var piiKeys = []string{
	"ssn", "social_security", "credit_card", "card_number", "date_of_birth",
	"phone", "email",
}

// credentialPattern matches inline bearer/basic credentials in string values.
var credentialPattern = regexp.MustCompile(`(?i)\b(bearer|basic)\s+[A-Za-z0-9._~+/=-]+`)

// SensitiveKeyFilter redacts values stored under well-known secret key names.
func SensitiveKeyFilter(event *Event) {
	redactKeys(event.Details, sensitiveKeys)
	redactKeys(event.Metadata, sensitiveKeys)
}

// PIIFilter redacts values stored under personally-identifying key names.
func PIIFilter(event *Event) {
	redactKeys(event.Details, piiKeys)
	redactKeys(event.Metadata, piiKeys)
}

// CredentialFilter scrubs inline bearer/basic credentials embedded in string
// values and in the error message.
func CredentialFilter(event *Event) {
	scrubValues(event.Details)
	scrubValues(event.Metadata)
	event.ErrorMessage = credentialPattern.ReplaceAllString(event.ErrorMessage, Redacted)
}

// DefaultFilters returns the built-in redaction chain, applied in order.
func DefaultFilters() []Filter {
	return []Filter{SensitiveKeyFilter, PIIFilter, CredentialFilter}
}

func redactKeys(data map[string]interface{}, keys []string) {
	for k, v := range data {
		if nested, ok := v.(map[string]interface{}); ok {
			redactKeys(nested, keys)
			continue
		}
		if matchesKey(k, keys) {
			data[k] = Redacted
		}
	}
}

func matchesKey(key string, keys []string) bool {
	lowered := strings.ToLower(key)
	for _, candidate := range keys {
		if strings.Contains(lowered, candidate) {
			return true
		}
	}
	return false
}

func scrubValues(data map[string]interface{}) {
	for k, v := range data {
		switch value := v.(type) {
		case map[string]interface{}:
			scrubValues(value)
		case string:
			data[k] = credentialPattern.ReplaceAllString(value, Redacted)
		}
	}
}
