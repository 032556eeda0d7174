package usecase

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// DefaultAccountNumberPrefix prefixes generated account numbers.
const DefaultAccountNumberPrefix = "INV"

// RandomAccountNumbers generates numbers of the form PREFIX-yyyymmdd-NNNNN.
type RandomAccountNumbers struct {
	prefix string
}

// NewRandomAccountNumbers creates a generator with the given prefix.
func NewRandomAccountNumbers(prefix string) *RandomAccountNumbers {
	if prefix == "" {
		prefix = DefaultAccountNumberPrefix
	}
	return &RandomAccountNumbers{prefix: prefix}
}

// Generate returns a candidate number; uniqueness is checked by the caller.
func (g *RandomAccountNumbers) Generate(now time.Time) string {
	return fmt.Sprintf("%s-%s-%05d", g.prefix, now.UTC().Format("20060102"), rand.IntN(100000))
}
