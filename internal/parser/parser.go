// Package parser extracts the stock count embedded in a filter label such as
// "Men (1,252)".
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

var countPattern = regexp.MustCompile(`\(([\d,]+)\)`)

// ParseCount returns the first parenthesized, comma-grouped integer in text.
// Any text without such a group yields a parse failure carrying the raw text.
func ParseCount(text string) (int64, error) {
	match := countPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, stock.NewError(stock.KindParseFailure, "match count",
			fmt.Errorf("no parenthesized count in %q", text))
	}
	digits := strings.ReplaceAll(match[1], ",", "")
	if digits == "" {
		return 0, stock.NewError(stock.KindParseFailure, "match count",
			fmt.Errorf("empty count group in %q", text))
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, stock.NewError(stock.KindParseFailure, "parse count",
			fmt.Errorf("count %q in %q: %w", match[1], text, err))
	}
	return n, nil
}
