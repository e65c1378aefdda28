// Package numparse turns numbers as the game renders them ("55.430 million
// biscotti", "374,961", "1.2 billion cookies per second") into float64.
package numparse

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Suffix is a magnitude word and its multiplier.
type Suffix struct {
	Word       string
	Multiplier float64
}

// Suffixes lists every recognised magnitude word, longest first so that no
// word shadows a longer one containing it.
var Suffixes = sortSuffixes([]Suffix{
	{"million", 1e6},
	{"billion", 1e9},
	{"trillion", 1e12},
	{"quadrillion", 1e15},
	{"quintillion", 1e18},
	{"milione", 1e6},
	{"milioni", 1e6},
	{"miliardo", 1e9},
	{"miliardi", 1e9},
	{"bilione", 1e12},
	{"bilioni", 1e12},
})

// SuffixPattern is the alternation of English suffix words, for callers that
// build regular expressions around numbers.
const SuffixPattern = `quintillion|quadrillion|trillion|billion|million`

var noise = []string{
	"al secondo",
	"per second",
	"biscotti",
	"cookies",
	"cookie",
	"\n",
	"\r",
	"\t",
	":",
}

func sortSuffixes(s []Suffix) []Suffix {
	sort.SliceStable(s, func(i, j int) bool { return len(s[i].Word) > len(s[j].Word) })
	return s
}

// Parse converts localized game text to a number. Both '.' and ',' present:
// the first to appear groups thousands and the other is the decimal mark.
// Only ',': decimal mark. Only '.': groups thousands when every group after
// it has exactly three digits, else decimal mark. Unparseable input yields 0.
func Parse(text string) float64 {
	body, mult := stripSuffix(clean(text))
	return finish(resolveSeparators(digitsAndMarks(body)), mult)
}

// ParseEnglish converts English formatted text where ',' only groups
// thousands, as used by building tooltips ("1,234.5 million").
func ParseEnglish(text string) float64 {
	body, mult := stripSuffix(clean(text))
	return finish(strings.ReplaceAll(digitsAndMarks(body), ",", ""), mult)
}

// Format renders n with the largest suffix not exceeding it.
func Format(n float64) string {
	if math.IsInf(n, 1) {
		return "∞"
	}
	for _, s := range byMagnitude {
		if math.Abs(n) >= s.Multiplier {
			return strconv.FormatFloat(n/s.Multiplier, 'f', 3, 64) + " " + s.Word
		}
	}
	return strconv.FormatFloat(n, 'f', 1, 64)
}

var byMagnitude = []Suffix{
	{"quintillion", 1e18},
	{"quadrillion", 1e15},
	{"trillion", 1e12},
	{"billion", 1e9},
	{"million", 1e6},
}

func clean(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, n := range noise {
		text = strings.ReplaceAll(text, n, " ")
	}
	return strings.TrimSpace(text)
}

func stripSuffix(text string) (string, float64) {
	for _, s := range Suffixes {
		if i := strings.Index(text, s.Word); i >= 0 {
			return text[:i] + text[i+len(s.Word):], s.Multiplier
		}
	}
	return text, 1
}

func digitsAndMarks(text string) string {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), ".,")
}

func resolveSeparators(s string) string {
	dot := strings.IndexByte(s, '.')
	comma := strings.IndexByte(s, ',')

	switch {
	case dot >= 0 && comma >= 0:
		group, decimal := ".", ","
		if comma < dot {
			group, decimal = ",", "."
		}
		s = strings.ReplaceAll(s, group, "")
		return strings.Replace(s, decimal, ".", 1)
	case comma >= 0:
		return strings.ReplaceAll(s, ",", ".")
	case dot >= 0:
		if thousandGroups(strings.Split(s, ".")[1:]) {
			return strings.ReplaceAll(s, ".", "")
		}
		return s
	}
	return s
}

func thousandGroups(groups []string) bool {
	for _, g := range groups {
		if len(g) != 3 {
			return false
		}
	}
	return len(groups) > 0
}

func finish(s string, mult float64) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	v *= mult
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
