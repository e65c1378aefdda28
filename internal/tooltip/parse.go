package tooltip

import (
	"regexp"
	"strings"

	"github.com/GriffinCanCode/crumbot/internal/numparse"
)

var (
	priceWithSuffix = regexp.MustCompile(`(\d[\d,]*\.?\d*)\s*(` + numparse.SuffixPattern + `)`)
	bareNumber      = regexp.MustCompile(`\d[\d,]*`)
	singleRate      = regexp.MustCompile(`each\s+[a-z][a-z ]*?\s+produces?\s+(\d[\d,]*\.?\d*)\s*(?:(` + numparse.SuffixPattern + `)\s+)?cookies?\s+per\s+second`)
	totalRate       = regexp.MustCompile(`producing\s+(\d[\d,]*\.?\d*)\s*(?:(` + numparse.SuffixPattern + `)\s+)?cookies?\s+per\s+second`)
)

// ParsePrice returns the first number followed by a magnitude word, or
// failing that the first bare number.
func ParsePrice(text string) float64 {
	text = strings.ToLower(text)
	if m := priceWithSuffix.FindStringSubmatch(text); m != nil {
		return numparse.ParseEnglish(m[1] + " " + m[2])
	}
	if m := bareNumber.FindString(text); m != "" {
		return numparse.ParseEnglish(m)
	}
	return 0
}

// ParseSingle extracts "each <building> produces N cookies per second".
func ParseSingle(text string) float64 { return rate(singleRate, text) }

// ParseTotal extracts "producing N cookies per second".
func ParseTotal(text string) float64 { return rate(totalRate, text) }

func rate(re *regexp.Regexp, text string) float64 {
	m := re.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0
	}
	return numparse.ParseEnglish(strings.TrimSpace(m[1] + " " + m[2]))
}

// Parse extracts every field of a tooltip. Missing fields are zero.
func Parse(text string) Entry {
	return Entry{Price: ParsePrice(text), Single: ParseSingle(text), Total: ParseTotal(text)}
}
