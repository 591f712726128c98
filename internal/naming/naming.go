// Package naming converts identifiers between the snake_case and camelCase
// conventions used to map logical names (config keys, URL segments, layer
// names) onto class identifiers.
package naming

import (
	"fmt"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Direction selects the conversion performed by ParseName.
type Direction int

const (
	// ToSnake converts camelCase / StudlyCase into snake_case.
	ToSnake Direction = iota
	// ToCamel converts snake_case into camelCase / StudlyCase.
	ToCamel
)

// NamespaceSeparator separates the segments of a class identifier.
const NamespaceSeparator = `\`

const defaultCacheSize = 1024

type cacheKey struct {
	name    string
	dir     Direction
	ucfirst bool
}

// Transformer memoises ParseName results. The zero value is not usable; call
// NewTransformer.
type Transformer struct {
	cache *lru.Cache[cacheKey, string]
}

// NewTransformer creates a transformer holding at most size conversions.
func NewTransformer(size int) (*Transformer, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[cacheKey, string](size)
	if err != nil {
		return nil, fmt.Errorf("create naming cache: %w", err)
	}
	return &Transformer{cache: cache}, nil
}

var defaultTransformer = mustTransformer()

func mustTransformer() *Transformer {
	t, err := NewTransformer(defaultCacheSize)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseName converts name with the default transformer.
func ParseName(name string, dir Direction, ucfirst bool) string {
	return defaultTransformer.ParseName(name, dir, ucfirst)
}

// ParseName converts name between naming conventions.
//
// ToSnake inserts an underscore before every upper-case ASCII letter, trims
// leading and trailing underscores and lower-cases the result; ucfirst is
// ignored. ToCamel upper-cases every letter that follows an underscore and
// drops the underscore, then upper- or lower-cases the first character
// according to ucfirst.
func (t *Transformer) ParseName(name string, dir Direction, ucfirst bool) string {
	if dir == ToSnake {
		ucfirst = false
	}
	key := cacheKey{name: name, dir: dir, ucfirst: ucfirst}
	if v, ok := t.cache.Get(key); ok {
		return v
	}

	var result string
	if dir == ToCamel {
		result = toCamel(name, ucfirst)
	} else {
		result = toSnake(name)
	}

	t.cache.Add(key, result)
	return result
}

// Len reports the number of cached conversions.
func (t *Transformer) Len() int {
	return t.cache.Len()
}

func toSnake(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(strings.Trim(b.String(), "_"))
}

func toCamel(name string, ucfirst bool) string {
	var b strings.Builder
	b.Grow(len(name))
	runes := []rune(name)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '_' && i+1 < len(runes) && isASCIILetter(runes[i+1]) {
			b.WriteRune(unicode.ToUpper(runes[i+1]))
			i++
			continue
		}
		b.WriteRune(r)
	}

	out := []rune(b.String())
	if len(out) == 0 {
		return ""
	}
	if ucfirst {
		out[0] = unicode.ToUpper(out[0])
	} else {
		out[0] = unicode.ToLower(out[0])
	}
	return string(out)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// UpperWords upper-cases the first character of every whitespace-delimited
// word, leaving the rest of each word untouched. A word starting with a digit
// or punctuation is unchanged, so "2fa" stays "2fa" and "my-thing" becomes
// "My-thing".
func UpperWords(s string) string {
	upper := cases.Upper(language.Und)

	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range s {
		if start && !isWordSeparator(r) {
			b.WriteString(upper.String(string(r)))
		} else {
			b.WriteRune(r)
		}
		start = isWordSeparator(r)
	}
	return b.String()
}

func isWordSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '\f', '\v':
		return true
	}
	return false
}
