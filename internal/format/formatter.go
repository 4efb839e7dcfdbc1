// Package format converts between the text used on forms, query strings and
// path parameters and the typed values the services work with.
package format

import "golang.org/x/text/language"

// Formatter parses text into a value and prints a value back to text.
// Parse returns a nil value without error when there is nothing to parse.
type Formatter[T any] interface {
	Parse(text string, locale language.Tag) (*T, error)
	Print(value *T, locale language.Tag) string
}
