package prompt

import "strings"

var quoteFolder = strings.NewReplacer(
	"“", "",
	"”", "",
	`"`, "",
	"‘", "'",
	"’", "'",
)

// Normalize lower-cases s, drops double quotes, folds curly apostrophes
// and collapses runs of whitespace to a single space.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = quoteFolder.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
