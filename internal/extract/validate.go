package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SashaDiz/autoved-sub000/internal/catalog"
)

// ErrInvalid is returned by Validate for candidates missing a required field.
var ErrInvalid = errors.New("invalid listing")

// Validate checks that title, engine and price are non-blank after trimming.
func Validate(c catalog.CandidateListing) error {
	var missing []string
	if strings.TrimSpace(c.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(c.Engine) == "" {
		missing = append(missing, "engine")
	}
	if strings.TrimSpace(c.Price) == "" {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	return nil
}
