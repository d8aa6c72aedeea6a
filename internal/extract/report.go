package extract

import "github.com/SashaDiz/autoved-sub000/internal/catalog"

// Report is the diagnostic view of one piece of text: what the rules extracted and whether
// the result would pass validation. IsListing reports whether the text carries a listing
// marker at all; Listing then holds every field found, even when Valid is false. Nothing is
// persisted.
type Report struct {
	Text      string                    `json:"text"`
	IsListing bool                      `json:"is_listing"`
	Listing   *catalog.CandidateListing `json:"listing,omitempty"`
	Valid     bool                      `json:"valid"`
	Error     string                    `json:"error,omitempty"`
}

// Diagnose runs extraction and validation on text.
func (e *Extractor) Diagnose(text string) Report {
	out := Report{Text: text}
	listing, relevant := e.candidate(text)
	out.IsListing = relevant
	if !relevant {
		out.Error = "not a listing"
		return out
	}
	out.Listing = &listing
	if err := Validate(listing); err != nil {
		out.Error = err.Error()
		return out
	}
	out.Valid = true
	return out
}
