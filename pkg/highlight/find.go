package highlight

import (
	"fmt"
	"slices"
	"unicode"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/macropower/crumbs/pkg/tree"
)

// Match is a leaf whose text matched a [Find] query.
type Match struct {
	Path     string `json:"path"     yaml:"path"`
	Text     string `json:"text"     yaml:"text"`
	LineText string `json:"lineText" yaml:"lineText"`
	Line     int    `json:"line"     yaml:"line"`
	Col      int    `json:"col"      yaml:"col"`
}

func (m Match) String() string {
	return fmt.Sprintf("Line: %s\n%s", m.LineText, m.Path)
}

// Normalize removes diacritics from s, so that "ö" compares equal to "o".
func Normalize(s string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	out, _, err := transform.String(t, s)
	if err != nil {
		return "", fmt.Errorf("normalize: %w", err)
	}

	return out, nil
}

// Find returns the crumbs whose source text equals query after
// normalization, in source order. With fuzzy set, any leaf containing the
// query's characters in order matches.
func Find(crumbs []tree.Crumb, src []byte, query string, fuzzyMatch bool) ([]Match, error) {
	q, err := Normalize(query)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(crumbs))
	for i, c := range crumbs {
		b, ok := c.Locate.Slice(src)
		if !ok {
			return nil, fmt.Errorf("crumb %q: range %s outside source", c, c.Locate)
		}

		texts[i], err = Normalize(string(b))
		if err != nil {
			return nil, err
		}
	}

	var idx []int
	if fuzzyMatch {
		for _, m := range fuzzy.Find(q, texts) {
			idx = append(idx, m.Index)
		}

		slices.Sort(idx)
	} else {
		for i, text := range texts {
			if text == q {
				idx = append(idx, i)
			}
		}
	}

	lines := tree.NewLines(src)
	matches := make([]Match, 0, len(idx))

	for _, i := range idx {
		c := crumbs[i]
		line := lines.Line(c.Locate.Offset)
		b, _ := c.Locate.Slice(src)

		matches = append(matches, Match{
			Path:     c.String(),
			Text:     string(b),
			LineText: string(lines.Text(line)),
			Line:     line + 1,
			Col:      c.Locate.Offset - lines.Start(line),
		})
	}

	return matches, nil
}
