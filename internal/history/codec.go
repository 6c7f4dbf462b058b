// Package history encodes and decodes the per-user answer-history fields.
// Each field is a single text value: question idents joined by ", ". The
// encoding is append-only and does not deduplicate; callers that need
// set semantics must check Contains before appending.
package history

import "strings"

const delimiter = ", "

// Decode splits an encoded history field into its idents, dropping empty
// tokens and preserving order. An empty field decodes to an empty list.
func Decode(field string) []string {
	if field == "" {
		return nil
	}
	parts := strings.Split(field, delimiter)
	idents := parts[:0]
	for _, p := range parts {
		if p != "" {
			idents = append(idents, p)
		}
	}
	return idents
}

// Append returns the field with ident appended. No delimiter is written for
// the first entry.
func Append(field, ident string) string {
	if field == "" {
		return ident
	}
	return field + delimiter + ident
}

// Contains reports whether ident is already recorded in the field.
func Contains(field, ident string) bool {
	for _, got := range Decode(field) {
		if got == ident {
			return true
		}
	}
	return false
}
