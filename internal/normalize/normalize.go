// Package normalize canonicalizes user-entered identity fields before they
// are stored or compared.
package normalize

import "strings"

// Email trims surrounding whitespace and lower-cases the address. All email
// lookups and the unique index operate on this form.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// Name trims surrounding whitespace and collapses internal runs of
// whitespace to single spaces. Case is preserved.
func Name(n string) string {
	return strings.Join(strings.Fields(n), " ")
}
