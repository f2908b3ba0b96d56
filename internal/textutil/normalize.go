package textutil

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Scheme names a normalization scheme.
type Scheme string

const (
	SchemeSimple  Scheme = "simple"
	SchemeUnicode Scheme = "unicode"
)

// asciiPunctuation mirrors the printable ASCII punctuation set.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalizer canonicalizes a raw title value.
type Normalizer interface {
	Scheme() Scheme
	Normalize(raw any) string
}

// NewNormalizer returns the normalizer for the named scheme. An empty name
// selects the simple scheme.
func NewNormalizer(scheme string) (Normalizer, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(scheme))) {
	case SchemeSimple, "":
		return SimpleNormalizer{}, nil
	case SchemeUnicode:
		return UnicodeNormalizer{}, nil
	default:
		return nil, fmt.Errorf("unknown normalization scheme %q", scheme)
	}
}

// SimpleNormalizer lowercases, drops ASCII punctuation and collapses
// whitespace runs to a single space.
type SimpleNormalizer struct{}

func (SimpleNormalizer) Scheme() Scheme { return SchemeSimple }

func (SimpleNormalizer) Normalize(raw any) string {
	value, ok := stringValue(raw)
	if !ok {
		return ""
	}
	var b strings.Builder
	b.Grow(len(value))
	pendingSpace := false
	for _, r := range strings.ToLower(value) {
		switch {
		case r < unicode.MaxASCII && strings.ContainsRune(asciiPunctuation, r):
			continue
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UnicodeNormalizer applies NFKC folding and uppercases the result.
type UnicodeNormalizer struct{}

func (UnicodeNormalizer) Scheme() Scheme { return SchemeUnicode }

func (UnicodeNormalizer) Normalize(raw any) string {
	value, ok := stringValue(raw)
	if !ok {
		return ""
	}
	// cases.Caser carries state, so each call gets its own.
	upper := cases.Upper(language.Und)
	return strings.TrimSpace(upper.String(norm.NFKC.String(value)))
}

func stringValue(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}
