package extract

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/SashaDiz/autoved-sub000/internal/catalog"
)

// Unit suffixes appended to non-empty numeric fields.
const (
	MileageSuffix = " км."
	PriceSuffix   = " ₽"
)

// ZeroMileage is the rendered form of a zero-distance odometer reading.
const ZeroMileage = "0" + MileageSuffix

var driveSynonyms = map[string]string{
	"2WD":      catalog.Drive2WD,
	"FWD":      catalog.Drive2WD,
	"FF":       catalog.Drive2WD,
	"ПЕРЕДНИЙ": catalog.Drive2WD,
	"4WD":      catalog.Drive4WD,
	"4X4":      catalog.Drive4WD,
	"4Х4":      catalog.Drive4WD, // Cyrillic Х
	"ПОЛНЫЙ":   catalog.Drive4WD,
	"AWD":      catalog.DriveAWD,
	"RWD":      catalog.DriveRWD,
	"FR":       catalog.DriveRWD,
	"ЗАДНИЙ":   catalog.DriveRWD,
}

type countryMatcher struct {
	code    string
	needles []string
}

// Order matters: the first matcher whose needle occurs wins.
var countryMatchers = []countryMatcher{
	{code: "JP", needles: []string{"🇯🇵", "япон", "japan"}},
	{code: "KR", needles: []string{"🇰🇷", "коре", "korea"}},
	{code: "CN", needles: []string{"🇨🇳", "кита", "china"}},
	{code: "AE", needles: []string{"🇦🇪", "оаэ", "эмират", "дубай", "uae", "emirates", "dubai"}},
}

// Currency markers that mean a price is not quoted in roubles.
var foreignCurrencies = []string{
	"$", "€", "¥", "₩", "usd", "eur", "jpy", "krw", "cny", "aed",
	"долл", "евро", "иен", "йен", "вон", "юан", "дирх",
}

// ForeignCurrency reports whether s names a currency other than the rouble.
func ForeignCurrency(s string) bool {
	lower := strings.ToLower(s)
	for _, c := range foreignCurrencies {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

// ScaleAmount returns the digits of an integer part multiplied by a magnitude word
// ("тыс", "млн", "млрд"), with an optional one or two digit fraction applied first:
// ("1", "5", "млн") is "1500000". Without a magnitude the fraction is dropped.
func ScaleAmount(integer, fraction, magnitude string) string {
	var digits strings.Builder
	for _, r := range integer {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	var zeros int
	switch m := strings.ToLower(magnitude); {
	case strings.HasPrefix(m, "тыс"):
		zeros = 3
	case strings.HasPrefix(m, "млн"):
		zeros = 6
	case strings.HasPrefix(m, "млрд"):
		zeros = 9
	default:
		return digits.String()
	}
	if len(fraction) > zeros {
		fraction = fraction[:zeros]
	}
	return digits.String() + fraction + strings.Repeat("0", zeros-len(fraction))
}

// NormalizeDrive upper-cases a drive token and maps it to its canonical code.
// Unknown tokens are returned upper-cased but otherwise unchanged.
func NormalizeDrive(token string) string {
	token = strings.ToUpper(strings.Trim(strings.TrimSpace(token), ".,;:()"))
	if token == "" {
		return ""
	}
	if code, ok := driveSynonyms[token]; ok {
		return code
	}
	return token
}

// CountryCode maps free text naming a country (or carrying its flag) to a supported code.
// It returns "" when nothing matches.
func CountryCode(text string) string {
	lower := strings.ToLower(text)
	for _, m := range countryMatchers {
		for _, needle := range m.needles {
			if strings.Contains(lower, needle) {
				return m.code
			}
		}
	}
	return ""
}

// FormatNumber strips every non-digit and regroups the digits in threes separated by a space.
// Leading zeros are dropped; an all-zero input renders as "0". No digits renders as "".
func FormatNumber(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := strings.TrimLeft(digits.String(), "0")
	if d == "" {
		if digits.Len() > 0 {
			return "0"
		}
		return ""
	}
	var out strings.Builder
	head := len(d) % 3
	if head > 0 {
		out.WriteString(d[:head])
	}
	for i := head; i < len(d); i += 3 {
		if out.Len() > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(d[i : i+3])
	}
	return out.String()
}

// FormatMileage renders an odometer reading with the kilometre suffix, or "" for no digits.
func FormatMileage(raw string) string {
	n := FormatNumber(raw)
	if n == "" {
		return ""
	}
	return n + MileageSuffix
}

// FormatPrice renders a price with the rouble suffix, or "" for no digits.
func FormatPrice(raw string) string {
	n := FormatNumber(raw)
	if n == "" {
		return ""
	}
	return n + PriceSuffix
}

// IsNewMileage reports whether a rendered mileage means a new car.
func IsNewMileage(mileage string) bool {
	return mileage == "" || mileage == ZeroMileage
}

// FormatPeriod renders "year / month". An out-of-range or missing month renders the year alone.
func FormatPeriod(year, month string) string {
	if year == "" {
		return ""
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return year
	}
	return fmt.Sprintf("%s / %02d", year, m)
}

// stripSymbols removes emoji, flags, variation selectors and other pictographs.
func stripSymbols(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.Is(unicode.So, r), unicode.Is(unicode.Sk, r), unicode.Is(unicode.Cf, r):
			return -1
		case r == 0xFE0F || r == 0xFE0E || r == 0x20E3:
			return -1
		}
		return r
	}, s)
}

// cleanValue strips pictographs and collapses whitespace.
func cleanValue(s string) string {
	return strings.Join(strings.Fields(stripSymbols(s)), " ")
}

// cleanTitle is cleanValue minus hashtags and dangling separators.
func cleanTitle(s string) string {
	fields := strings.Fields(stripSymbols(s))
	kept := fields[:0]
	for _, f := range fields {
		if strings.HasPrefix(f, "#") {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Trim(strings.Join(kept, " "), " -–—|,.")
}
