package excerpt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestTrimCutsAtWordBoundary(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog and keeps running through the field without stopping for a very long time indeed"

	got := Trim(text, 50)

	require.Equal(t, "The quick brown fox jumps over the lazy dog and...", got)
	require.LessOrEqual(t, utf8.RuneCountInString(got), 53)
}

func TestTrimLeavesShortTextUntouched(t *testing.T) {
	require.Equal(t, "Short text.", Trim("Short text.", 50))
	require.Equal(t, "exactly ten", Trim("exactly ten", 11))
	require.Equal(t, "", Trim("", 10))
}

func TestTrimKeepsSentenceTerminator(t *testing.T) {
	require.Equal(t, "Hello world.", Trim("Hello world. Another sentence follows here", 12))
	require.Equal(t, "Really?", Trim("Really? Yes, really", 8))
}

func TestTrimKeepsCompleteFinalWord(t *testing.T) {
	require.Equal(t, "one two...", Trim("one two three", 7))
	require.Equal(t, "one two...", Trim("one two three", 8))
}

func TestTrimStripsTrailingCommas(t *testing.T) {
	require.Equal(t, "alpha...", Trim("alpha, beta gamma", 6))
}

func TestTrimCountsCodePoints(t *testing.T) {
	got := Trim("héllo wörld ünïcode", 8)
	require.Equal(t, "héllo...", got)
}

func TestTrimDecodesEntitiesInSlice(t *testing.T) {
	require.Equal(t, "Tom &...", Trim("Tom &amp; Jerry run", 9))
	require.Equal(t, "Tom...", Trim("Tom &amp; Jerry run", 7))
}

func TestTrimNeverCutsTheOnlyWord(t *testing.T) {
	require.Equal(t, "", Trim("Supercalifragilistic", 5))
	require.Equal(t, "", Trim("Supercalifragilistic rest of it", 5))
	require.Equal(t, "Super...", Trim("Super califragilistic", 5))
}

func TestTrimNonPositiveBudget(t *testing.T) {
	require.Equal(t, "", Trim("anything", 0))
}

func TestTrimCollapsesWhitespaceInResult(t *testing.T) {
	got := Trim("first\nsecond   third fourth", 15)
	require.Equal(t, "first second...", got)
	require.False(t, strings.Contains(got, "\n"))
}

func TestPlainStripsMarkup(t *testing.T) {
	in := `<p>Hello <strong>world</strong></p><script>track()</script>[gallery ids="1,2"] &amp; more`
	require.Equal(t, "Hello world & more", Plain(in))
	require.Equal(t, "", Plain("   "))
	require.Equal(t, "line one line two", Plain("line one<br/>line two"))
}
