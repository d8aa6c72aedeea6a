// Package extract turns free-form channel posts into candidate car listings.
//
// Extraction is layered: every field has an ordered list of rules, from strictly labelled
// forms ("Пробег: 25 000 км.") to loose patterns anywhere in the text. The first rule that
// yields a non-empty value wins. Extraction never fails loudly; text that does not look like
// a listing, or that lacks a title, engine or price, is reported as "not a listing".
package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/SashaDiz/autoved-sub000/internal/catalog"
	"github.com/SashaDiz/autoved-sub000/internal/telegram"
)

// DateLayout is the published-date label format.
const DateLayout = "02.01.2006"

var relevantTags = []string{
	"#вналичии", "#впути", "#подзаказ", "#авто", "#автомобиль", "#продажа", "#autoved",
}

var relevantKeywords = []string{
	"двигатель:", "пробег:", "привод:", "цена под ключ", "л.с.", "₽",
}

// digitLetter finds a digit glued to a Latin letter ("25.000km") so numeric rules can see the
// end of the number.
var digitLetter = regexp.MustCompile(`(\d)([A-Za-z])`)

// Extractor applies a rule set to message text. It holds no mutable state and is safe for
// concurrent use.
type Extractor struct {
	rules    Rules
	location *time.Location
	logger   *zap.Logger
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithRules replaces the default rule set.
func WithRules(r Rules) Option {
	return func(e *Extractor) { e.rules = r }
}

// WithLocation sets the zone used to render the published-date label.
func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithLogger attaches a logger for rule-level debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New builds an Extractor with the default rules and Moscow time for date labels.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		rules:    DefaultRules(),
		location: time.FixedZone("MSK", 3*60*60),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsRelevant reports whether text carries any listing marker: a known hashtag, a field
// keyword, or a leading fire emoji.
func IsRelevant(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "🔥") {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, tag := range relevantTags {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	for _, kw := range relevantKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Extract parses a Telegram message. The image reference is the largest photo's file ID and
// the published label is the message date. The boolean is false when the message is not a
// listing.
func (e *Extractor) Extract(msg telegram.Message) (catalog.CandidateListing, bool) {
	c, ok := e.ExtractText(msg.Body())
	if !ok {
		return catalog.CandidateListing{}, false
	}
	if photo, has := msg.LargestPhoto(); has {
		c.ImageReference = photo.FileID
	}
	if msg.Date > 0 {
		c.PublishedDateLabel = time.Unix(msg.Date, 0).In(e.location).Format(DateLayout)
	}
	return c, true
}

// ExtractText parses raw text with no message metadata. Candidates that fail Validate are
// reported as not a listing.
func (e *Extractor) ExtractText(text string) (catalog.CandidateListing, bool) {
	c, relevant := e.candidate(text)
	if !relevant || Validate(c) != nil {
		return catalog.CandidateListing{}, false
	}
	return c, true
}

// candidate runs the field rules without the final gate. The boolean is false when the text
// carries no listing marker or extraction panicked.
func (e *Extractor) candidate(text string) (c catalog.CandidateListing, relevant bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("extraction panicked", zap.Any("panic", r))
			c, relevant = catalog.CandidateListing{}, false
		}
	}()

	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !IsRelevant(text) {
		return catalog.CandidateListing{}, false
	}
	numeric := digitLetter.ReplaceAllString(text, "$1 $2")

	c.Title = e.field("title", e.rules.Title, text)
	c.Engine = e.field("engine", e.rules.Engine, text)
	c.Drive = e.field("drive", e.rules.Drive, text)
	c.Trim = e.field("trim", e.rules.Trim, text)
	c.Mileage = e.field("mileage", e.rules.Mileage, numeric)
	c.Price = e.field("price", e.rules.Price, numeric)
	c.RegistrationPeriod = e.field("registration", e.rules.Registration, text)
	c.OriginCountry = e.field("country", e.rules.Country, text)
	if c.OriginCountry == "" {
		c.OriginCountry = catalog.DefaultCountry()
	}
	c.ExternalLink = e.field("link", e.rules.Link, text)
	c.IsNew = IsNewMileage(c.Mileage)
	return c, true
}

func (e *Extractor) field(name string, rs rules, text string) string {
	value, rule := rs.apply(text)
	if rule != "" {
		e.logger.Debug("field matched", zap.String("field", name), zap.String("rule", rule))
	}
	return value
}
