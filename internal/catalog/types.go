// Package catalog defines core types shared across the ingestion subsystems.
package catalog

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a catalog entry does not exist.
var ErrNotFound = errors.New("catalog entry not found")

// Canonical drive codes produced by the extractor.
const (
	Drive2WD = "2WD"
	Drive4WD = "4WD"
	DriveAWD = "AWD"
	DriveRWD = "RWD"
)

// Supported origin country codes. The first entry is the fallback for unknown countries.
var Countries = []string{"JP", "KR", "CN", "AE"}

// DefaultCountry is used when the source text names no known export country.
func DefaultCountry() string {
	return Countries[0]
}

// CandidateListing is a parsed but unpersisted car record. It is owned by a single
// pipeline invocation and never shared.
type CandidateListing struct {
	Title              string `json:"title"`
	Engine             string `json:"engine"`
	Drive              string `json:"drive,omitempty"`
	Trim               string `json:"trim,omitempty"`
	Mileage            string `json:"mileage"`
	Price              string `json:"price"`
	RegistrationPeriod string `json:"registration_period,omitempty"`
	OriginCountry      string `json:"origin_country"`
	IsNew              bool   `json:"is_new"`
	PublishedDateLabel string `json:"published_date_label,omitempty"`
	ImageReference     string `json:"image_reference,omitempty"`
	ExternalLink       string `json:"external_link,omitempty"`
}

// CatalogEntry is the persisted car record shown on the public catalog.
type CatalogEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Engine    string    `json:"engine"`
	Drive     string    `json:"drive"`
	Trim      string    `json:"trim"`
	Distance  string    `json:"distance"`
	ImageURL  string    `json:"image_url"`
	Link      string    `json:"link"`
	Price     string    `json:"price"`
	Year      string    `json:"year"`
	Location  string    `json:"location"`
	IsNew     bool      `json:"is_new"`
	Date      string    `json:"date"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntry merges a validated candidate with its resolved image URL and link.
// ID, sort order and timestamps are assigned by the store on append.
func NewEntry(c CandidateListing, imageURL, link string) CatalogEntry {
	return CatalogEntry{
		Title:    c.Title,
		Engine:   c.Engine,
		Drive:    c.Drive,
		Trim:     c.Trim,
		Distance: c.Mileage,
		ImageURL: imageURL,
		Link:     link,
		Price:    c.Price,
		Year:     c.RegistrationPeriod,
		Location: c.OriginCountry,
		IsNew:    c.IsNew,
		Date:     c.PublishedDateLabel,
	}
}
