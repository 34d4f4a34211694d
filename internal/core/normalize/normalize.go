// Package normalize folds identities and labels coming from the code host so
// the same person or label always maps to one key
// Pipeline order
// 1 Sanitize drops controls and invalid bytes
// 2 Unicode NFKC normalization
// 3 Case folding
// 4 Remove format chars (ZWJ ZWNJ FEFF)
// 5 Width fold fullwidth to ASCII
// 6 Collapse whitespace and trim
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// pool of fresh transformer chains, a chain is not safe for concurrent use
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
		)
	},
}

func fold(s string) string {
	s = Sanitize(s)
	tr := chainPool.Get().(transform.Transformer)
	out, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	return out
}

// Login returns the actor key for a code host login
// logins are case insensitive upstream so the key is folded
// the "[bot]" suffix survives folding
func Login(s string) string {
	return strings.TrimSpace(fold(s))
}

// Label folds a label name for category matching
func Label(s string) string {
	return collapseSpaces(fold(s))
}

// Labels folds every label and drops empties and repeats, order is kept
func Labels(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, l := range in {
		n := Label(l)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Title cleans a PR title for storage without folding case
func Title(s string) string {
	return collapseSpaces(Sanitize(s))
}

// collapseSpaces converts whitespace runs to a single ASCII space and trims
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
