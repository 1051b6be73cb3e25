package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// currencyPattern matches "$1,299.99" style prices with mandatory cents.
	currencyPattern = regexp.MustCompile(`\$([0-9,]+\.[0-9]{2})`)

	// decimalPattern matches a bare decimal with cents, used so that
	// re-parsing an already-normalized price yields the same value.
	decimalPattern = regexp.MustCompile(`([0-9,]+\.[0-9]{2})`)

	// loosePattern tolerates missing cents ("$1,250"), used by sources
	// where prices are rendered without a fractional part.
	loosePattern = regexp.MustCompile(`\$([0-9,]+(?:\.[0-9]{2})?)`)
)

// ParsePrice normalizes a currency string to decimal units. It tries the
// strict "$digits.digits" pattern first, then a bare decimal so the
// function is idempotent over its own output. Returns false when no
// parseable price is present.
func ParsePrice(text string) (float64, bool) {
	if m := currencyPattern.FindStringSubmatch(text); m != nil {
		return toFloat(m[1])
	}
	if m := decimalPattern.FindStringSubmatch(text); m != nil {
		return toFloat(m[1])
	}
	return 0, false
}

// ParseLoosePrice normalizes prices that may omit cents ("$1,250").
func ParseLoosePrice(text string) (float64, bool) {
	if m := loosePattern.FindStringSubmatch(text); m != nil {
		return toFloat(m[1])
	}
	return ParsePrice(text)
}

// SplitPrice handles the layout where dollars and cents are rendered in
// separate nodes ("<strong>199</strong><sup>99</sup>"). The two parts
// are concatenated with a decimal point.
func SplitPrice(priceEl *goquery.Selection) (float64, bool) {
	if priceEl == nil {
		return 0, false
	}
	whole := strings.ReplaceAll(strings.TrimSpace(priceEl.Find("strong").First().Text()), ",", "")
	frac := strings.TrimSpace(priceEl.Find("sup").First().Text())
	frac = strings.TrimPrefix(frac, ".")
	if whole == "" || frac == "" {
		return 0, false
	}
	return toFloat(whole + "." + frac)
}

func toFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
