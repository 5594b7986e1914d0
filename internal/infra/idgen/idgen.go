// Package idgen derives store keys for new quotes.
package idgen

import (
	"fmt"
	"strconv"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"quotegw/internal/domain"
)

// Alphabet is the character set of the optional random suffix.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// SuffixLength is the number of random characters appended when suffixes
// are enabled.
const SuffixLength = 8

// QuoteKeys builds "quotes:<epoch-millis>" keys. Two quotes created within the
// same millisecond share a key and the later write wins, unless UniqueSuffix
// is set, in which case "-<nanoid>" is appended.
type QuoteKeys struct {
	UniqueSuffix bool
}

func NewQuoteKeys(uniqueSuffix bool) *QuoteKeys {
	return &QuoteKeys{UniqueSuffix: uniqueSuffix}
}

func (g *QuoteKeys) QuoteKey(createdAt time.Time) (string, error) {
	key := domain.QuoteKeyPrefix + strconv.FormatInt(createdAt.UnixMilli(), 10)
	if !g.UniqueSuffix {
		return key, nil
	}
	suffix, err := nanoid.Generate(Alphabet, SuffixLength)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return key + "-" + suffix, nil
}

var _ domain.KeyGenerator = (*QuoteKeys)(nil)
