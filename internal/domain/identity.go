package domain

import (
	"sort"
	"strings"
)

const keySeparator = "-"

var keyEscaper = strings.NewReplacer(`\`, `\\`, "-", `\-`, ":", `\:`)

// IdentityOf derives the key that decides whether an add merges into an existing
// line. Entries are ordered by attribute name so selection order never matters.
// Separator characters inside names and values are escaped, which keeps keys for
// different selections distinct. The product id is used as is.
func IdentityOf(productID string, selected SelectedAttributes) string {
	names := make([]string, 0, len(selected))
	for name := range selected {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, keyEscaper.Replace(name)+":"+keyEscaper.Replace(selected[name]))
	}
	return productID + keySeparator + strings.Join(parts, keySeparator)
}
