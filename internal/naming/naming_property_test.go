//go:build property
// +build property

package naming

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNamingProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("camelCase survives a snake round trip", prop.ForAll(
		func(x string) bool {
			return ParseName(ParseName(x, ToSnake, false), ToCamel, false) == x
		},
		gen.RegexMatch(`^[a-z][a-zA-Z0-9]{0,20}$`),
	))

	properties.Property("StudlyCase survives a snake round trip", prop.ForAll(
		func(x string) bool {
			return ParseName(ParseName(x, ToSnake, true), ToCamel, true) == x
		},
		gen.RegexMatch(`^[A-Z][a-zA-Z0-9]{0,20}$`),
	))

	properties.Property("snake output is lower case without edge underscores", prop.ForAll(
		func(x string) bool {
			out := ParseName(x, ToSnake, true)
			return out == strings.ToLower(out) &&
				!strings.HasPrefix(out, "_") && !strings.HasSuffix(out, "_")
		},
		gen.RegexMatch(`^[a-zA-Z][a-zA-Z0-9]{0,20}$`),
	))

	properties.TestingRun(t)
}
