package store

import (
	"fmt"
	"strings"

	"quotegw/internal/domain"
)

// Pattern is a parsed key pattern: "*" matches everything, "prefix*" matches
// by prefix, and a pattern without a wildcard matches one key exactly.
type Pattern struct {
	Prefix string
	Exact  bool
}

func ParsePattern(raw string) (Pattern, error) {
	if raw == "" {
		return Pattern{}, domain.E(domain.CodeInvalidArgument, "store.pattern", "pattern is required", nil)
	}
	idx := strings.IndexByte(raw, '*')
	switch {
	case idx < 0:
		return Pattern{Prefix: raw, Exact: true}, nil
	case idx == len(raw)-1:
		return Pattern{Prefix: raw[:idx]}, nil
	default:
		return Pattern{}, domain.E(domain.CodeInvalidArgument, "store.pattern",
			fmt.Sprintf("unsupported pattern %q: only a single trailing wildcard is allowed", raw), nil)
	}
}

// Match reports whether key satisfies the pattern.
func (p Pattern) Match(key string) bool {
	if p.Exact {
		return key == p.Prefix
	}
	return strings.HasPrefix(key, p.Prefix)
}

// All reports whether the pattern matches every key.
func (p Pattern) All() bool {
	return !p.Exact && p.Prefix == ""
}
