package extract

import (
	"regexp"
	"strings"
)

// rule is one (pattern, transform) pair. A rule matches when its pattern matches and the
// transform yields a non-empty value.
type rule struct {
	name      string
	pattern   *regexp.Regexp
	transform func(groups []string) string
}

// rules is evaluated in priority order; the first matching rule wins.
type rules []rule

// apply tries every match of each rule in turn, so a rule whose first match is rejected by
// its transform can still succeed further down the text.
func (rs rules) apply(text string) (string, string) {
	for _, r := range rs {
		for _, groups := range r.pattern.FindAllStringSubmatch(text, -1) {
			var value string
			if r.transform != nil {
				value = r.transform(groups)
			} else {
				value = cleanValue(groups[1])
			}
			if value != "" {
				return value, r.name
			}
		}
	}
	return "", ""
}

// number matches a grouped ("2 890 000", "25.000", "1,200,000") or plain digit run, an
// optional one or two digit fraction and an optional magnitude word ("1,5 млн", "25 тыс.").
// It captures three groups: integer part, fraction, magnitude. The group boundary keeps
// "120 000 2019" from reading as "120 000 201".
const number = `(\d{1,3}(?:[ \x{00A0}.,]\d{3}\b)+|\d+)(?:[.,](\d{1,2})\b)?` +
	`(?:[ \t\x{00A0}]*(тыс|млн|млрд)\p{L}*\.?)?`

// amount scales the number captured at groups g[i:i+3].
func amount(g []string, i int) string {
	return ScaleAmount(g[i], g[i+1], g[i+2])
}

// roublePrice renders the price of a "Цена…" match whose prefix is g[1], number groups start
// at g[2] and trailing word is g[5]. Prices quoted in another currency are rejected.
func roublePrice(g []string) string {
	if ForeignCurrency(g[1]) || ForeignCurrency(g[5]) {
		return ""
	}
	return FormatPrice(amount(g, 2))
}

// firstLineTitle takes the first line that still has text once hashtags and pictographs are
// stripped. A labelled line ("Цена: …") is not a title.
func firstLineTitle(g []string) string {
	for _, line := range strings.Split(g[1], "\n") {
		title := cleanTitle(line)
		if title == "" {
			continue
		}
		if strings.Contains(line, ":") {
			return ""
		}
		return title
	}
	return ""
}

// Rules groups the ordered extraction rules for every field.
type Rules struct {
	Title        rules
	Engine       rules
	Drive        rules
	Trim         rules
	Mileage      rules
	Price        rules
	Registration rules
	Country      rules
	Link         rules
}

// DefaultRules returns the labelled-then-loose rule set for channel posts.
func DefaultRules() Rules {
	return Rules{
		Title: rules{
			{
				name:      "fire-headline",
				pattern:   regexp.MustCompile(`(?m)^[ \t]*🔥[ \t]*([^\n]+)$`),
				transform: func(g []string) string { return cleanTitle(g[1]) },
			},
			{
				name:      "labelled-model",
				pattern:   regexp.MustCompile(`(?mi)(?:Модель|Марка|Автомобиль)[ \t]*:[ \t]*([^\n]+)$`),
				transform: func(g []string) string { return cleanTitle(g[1]) },
			},
			{
				name:      "first-line",
				pattern:   regexp.MustCompile(`^\s*([\s\S]+)`),
				transform: firstLineTitle,
			},
		},
		Engine: rules{
			{
				name:    "labelled-engine",
				pattern: regexp.MustCompile(`(?i)(?:Двигатель|Мотор|Объ[её]м двигателя)[ \t]*:[ \t]*([^\n]+)`),
			},
			{
				name: "volume-power",
				pattern: regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?[ \t]*л\.?,?[ \t]*\d+[ \t]*л\.?[ \t]*с\.?` +
					`(?:[ \t]*[,(]?[ \t]*(?:бензин|дизель|гибрид|электро|газ)\p{L}*\)?)?)`),
			},
		},
		Drive: rules{
			{
				name:      "labelled-drive",
				pattern:   regexp.MustCompile(`(?i)Привод[ \t]*:[ \t]*([^\s,;]+)`),
				transform: func(g []string) string { return NormalizeDrive(g[1]) },
			},
			{
				name:      "bare-drive-code",
				pattern:   regexp.MustCompile(`(?i)(?:^|[\s,(/])(FWD|RWD|AWD|4WD|2WD|4X4)(?:$|[\s,.;)/])`),
				transform: func(g []string) string { return NormalizeDrive(g[1]) },
			},
		},
		Trim: rules{
			{
				name:    "labelled-trim",
				pattern: regexp.MustCompile(`(?i)Комплектация[ \t]*:[ \t]*([^\n]+)`),
			},
			{
				name:    "labelled-version",
				pattern: regexp.MustCompile(`(?i)(?:Версия|Исполнение)[ \t]*:[ \t]*([^\n]+)`),
			},
		},
		Mileage: rules{
			{
				name:      "labelled-mileage",
				pattern:   regexp.MustCompile(`(?i)Пробег[ \t]*:?[^\d\n]*` + number),
				transform: func(g []string) string { return FormatMileage(amount(g, 1)) },
			},
			{
				name:      "bare-km",
				pattern:   regexp.MustCompile(`(?i)` + number + `[ \t]*(?:км|km)`),
				transform: func(g []string) string { return FormatMileage(amount(g, 1)) },
			},
		},
		Price: rules{
			{
				name:      "turnkey-price",
				pattern:   regexp.MustCompile(`(?i)Цена под ключ([^\d\n]*)` + number + `[ \t]*(\S*)`),
				transform: roublePrice,
			},
			{
				name:      "labelled-price",
				pattern:   regexp.MustCompile(`(?i)Цена([^\d\n]*)` + number + `[ \t]*(\S*)`),
				transform: roublePrice,
			},
			{
				name:      "currency-suffix",
				pattern:   regexp.MustCompile(`(?i)` + number + `[ \t]*(?:₽|руб|р\.)`),
				transform: func(g []string) string { return FormatPrice(amount(g, 1)) },
			},
		},
		Registration: rules{
			{
				name: "labelled-year-month",
				pattern: regexp.MustCompile(`(?i)(?:Дата регистрации|Регистрация|Год выпуска|Год)[ \t]*:[ \t]*` +
					`((?:19|20)\d{2})(?:[ \t]*[./\-][ \t]*(\d{1,2}))?`),
				transform: func(g []string) string { return FormatPeriod(g[1], g[2]) },
			},
			{
				name: "labelled-month-year",
				pattern: regexp.MustCompile(`(?i)(?:Дата регистрации|Регистрация|Год выпуска|Год)[ \t]*:[ \t]*` +
					`(\d{1,2})[ \t]*[./\-][ \t]*((?:19|20)\d{2})`),
				transform: func(g []string) string { return FormatPeriod(g[2], g[1]) },
			},
			{
				name:      "bare-year",
				pattern:   regexp.MustCompile(`(?:^|\s)((?:19|20)\d{2})[ \t]*(?:г\.|год)`),
				transform: func(g []string) string { return g[1] },
			},
		},
		Country: rules{
			{
				name:      "labelled-country",
				pattern:   regexp.MustCompile(`(?i)Страна(?:[ \t]+экспорта)?[ \t]*:[ \t]*([^\n]+)`),
				transform: func(g []string) string { return CountryCode(g[1]) },
			},
			{
				name:      "flag",
				pattern:   regexp.MustCompile(`(🇯🇵|🇰🇷|🇨🇳|🇦🇪)`),
				transform: func(g []string) string { return CountryCode(g[1]) },
			},
		},
		Link: rules{
			{
				name:      "url",
				pattern:   regexp.MustCompile(`(https?://[^\s<>"]+)`),
				transform: func(g []string) string { return strings.TrimRight(g[1], ".,;)") },
			},
		},
	}
}
