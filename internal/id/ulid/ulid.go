// Package ulid generates sortable, collision-resistant object keys for re-hosted photos.
package ulid

import (
	"crypto/rand"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// KeyGenerator builds keys of the form "<prefix>/<ulid><ext>". The ULID's first
// 48 bits are the millisecond timestamp; the rest is random.
type KeyGenerator struct {
	prefix string
	ext    string
	now    func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// NewKeyGenerator creates a generator. ext should include the leading dot.
func NewKeyGenerator(prefix, ext string) *KeyGenerator {
	return &KeyGenerator{
		prefix:  strings.Trim(prefix, "/"),
		ext:     ext,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewKey returns a fresh object key.
func (g *KeyGenerator) NewKey() string {
	g.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
	g.mu.Unlock()

	name := strings.ToLower(id.String()) + g.ext
	if g.prefix == "" {
		return name
	}
	return path.Join(g.prefix, name)
}
