package excerpt

import (
	"reflect"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func wordsGen() gopter.Gen {
	word := gen.IntRange(1, 14).FlatMap(func(n any) gopter.Gen {
		return gen.SliceOfN(n.(int), gen.RuneRange('a', 'z'))
	}, reflect.TypeOf([]rune(nil))).Map(func(rs []rune) string { return string(rs) })
	return gen.SliceOf(word).Map(func(ws []string) string {
		out := make([]string, 0, len(ws))
		for _, w := range ws {
			if w != "" {
				out = append(out, w)
			}
		}
		return strings.Join(out, " ")
	})
}

func TestTrimProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("result never exceeds budget plus ellipsis", prop.ForAll(
		func(text string, budget int) bool {
			return utf8.RuneCountInString(Trim(text, budget)) <= budget+len(ellipsis)
		},
		wordsGen(),
		gen.IntRange(1, 120),
	))

	properties.Property("short text is returned unchanged", prop.ForAll(
		func(text string) bool {
			return Trim(text, utf8.RuneCountInString(text)) == text
		},
		wordsGen(),
	))

	properties.Property("cut lands on a word boundary of the source", prop.ForAll(
		func(text string, budget int) bool {
			got := Trim(text, budget)
			if got == text {
				return true
			}
			if got == "" {
				return utf8.RuneCountInString(strings.Fields(text)[0]) > budget
			}
			body := strings.TrimSuffix(got, ellipsis)
			if !strings.HasPrefix(text, body) {
				return false
			}
			rest := []rune(text[len(body):])
			return len(rest) == 0 || unicode.IsSpace(rest[0])
		},
		wordsGen(),
		gen.IntRange(1, 120),
	))

	properties.TestingRun(t)
}
