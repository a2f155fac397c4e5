package amazon

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"github.com/RevenueCat/purchases-android-sub005/store"
)

var micros = decimal.NewFromInt(1_000_000)

// Currency symbols observed in vendor price strings, used only when the
// marketplace cannot be resolved to a currency. When both are available the
// marketplace wins, even if the symbol disagrees: a US-dollar-denominated
// price observed in an Indian marketplace context is reported as INR. That
// normalization is intentional and test-encoded upstream.
var symbolCurrencies = []struct {
	symbol string
	code   string
}{
	{"US$", "USD"},
	{"CA$", "CAD"},
	{"AU$", "AUD"},
	{"MX$", "MXN"},
	{"R$", "BRL"},
	{"£", "GBP"},
	{"€", "EUR"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"$", "USD"},
}

// parsePrice normalizes a vendor price display string into a Price. Digit
// groups may use either "," or "." as the decimal separator depending on
// marketplace, and the currency symbol may be a prefix or a suffix with or
// without a separating space or non-breaking space.
func parsePrice(priceString, marketplace string) (store.Price, error) {
	amount, err := parseAmount(priceString)
	if err != nil {
		return store.Price{}, err
	}

	code := marketplaceCurrencyCode(marketplace)
	if code == "" {
		code = symbolCurrencyCode(priceString)
	}
	if code == "" {
		return store.Price{}, errors.Errorf("could not determine currency of price %q in marketplace %q", priceString, marketplace)
	}

	return store.Price{
		Formatted:    priceString,
		AmountMicros: amount.Mul(micros).IntPart(),
		CurrencyCode: code,
	}, nil
}

// marketplaceCurrencyCode maps a marketplace country code to its ISO 4217
// currency code, or "" when the marketplace is unknown.
func marketplaceCurrencyCode(marketplace string) string {
	if marketplace == "UK" {
		marketplace = "GB"
	}

	region, err := language.ParseRegion(marketplace)
	if err != nil {
		return ""
	}
	unit, ok := currency.FromRegion(region)
	if !ok {
		return ""
	}
	return unit.String()
}

func symbolCurrencyCode(priceString string) string {
	for _, entry := range symbolCurrencies {
		if strings.Contains(priceString, entry.symbol) {
			return entry.code
		}
	}
	return ""
}

// parseAmount extracts the numeric portion of a price string and resolves
// its decimal separator.
func parseAmount(priceString string) (decimal.Decimal, error) {
	first, last := -1, -1
	for i, r := range priceString {
		if unicode.IsDigit(r) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return decimal.Zero, errors.Errorf("no digits in price %q", priceString)
	}

	numeric := priceString[first : last+1]
	numeric = strings.ReplaceAll(numeric, " ", "")
	numeric = strings.ReplaceAll(numeric, " ", "")

	lastComma := strings.LastIndex(numeric, ",")
	lastDot := strings.LastIndex(numeric, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Both present: the later one is the decimal separator, the other
		// is grouping.
		if lastDot > lastComma {
			numeric = strings.ReplaceAll(numeric, ",", "")
		} else {
			numeric = strings.ReplaceAll(numeric, ".", "")
			numeric = strings.Replace(numeric, ",", ".", 1)
		}
	case lastComma >= 0:
		numeric = resolveSingleSeparator(numeric, ",")
	case lastDot >= 0:
		numeric = resolveSingleSeparator(numeric, ".")
	}

	value, err := decimal.NewFromString(numeric)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "unparseable price %q", priceString)
	}
	return value, nil
}

// resolveSingleSeparator decides whether a lone separator is decimal or
// grouping: repeated occurrences and three-digit tails are grouping,
// anything else is a decimal point.
func resolveSingleSeparator(numeric, separator string) string {
	if strings.Count(numeric, separator) > 1 {
		return strings.ReplaceAll(numeric, separator, "")
	}

	idx := strings.LastIndex(numeric, separator)
	if len(numeric)-idx-1 == 3 {
		return strings.ReplaceAll(numeric, separator, "")
	}
	return strings.Replace(numeric, separator, ".", 1)
}
