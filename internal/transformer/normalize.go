package transformer

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"retailetl/internal/etlerr"
	"retailetl/internal/logging"
	"retailetl/internal/table"
)

// NormalizeName converts a header into a lowercase SQL-friendly identifier:
//  1. trim surrounding whitespace and lowercase
//  2. replace each run of whitespace with one underscore
//  3. drop every rune outside [a-z0-9_]
//
// Accented letters are dropped, not folded: "Région" becomes "rgion".
//
// NormalizeName(NormalizeName(s)) == NormalizeName(s).
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('_')
				inSpace = true
			}
			continue
		}
		inSpace = false
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize renames every column with NormalizeName. Two headers that map to
// the same name, or a header that maps to nothing, fail the step; columns
// are never silently merged or overwritten.
type Normalize struct{}

func (Normalize) Name() string { return "normalize" }

func (n Normalize) Apply(ctx context.Context, t *table.Table) ([]etlerr.Warning, error) {
	orig := t.Columns()
	names := make([]string, len(orig))
	renamed := zerolog.Dict()
	for i, c := range orig {
		names[i] = NormalizeName(c)
		if names[i] == "" {
			return nil, &etlerr.TransformError{Step: n.Name(), Err: fmt.Errorf("column %q normalizes to an empty name", c)}
		}
		renamed = renamed.Str(c, names[i])
	}
	if err := t.Rename(names); err != nil {
		return nil, &etlerr.TransformError{Step: n.Name(), Err: err}
	}

	log := logging.FromContext(ctx)
	log.Info().
		Str("step", n.Name()).
		Dict("columns", renamed).
		Msg("column names normalized")
	return nil, nil
}
