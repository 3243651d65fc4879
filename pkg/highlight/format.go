package highlight

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Format is an output format for spans.
type Format string

const (
	// FormatRecords prints one "group line colStart colEnd text" record per
	// span.
	FormatRecords Format = "records"
	// FormatDebug prints records with the matched text quoted.
	FormatDebug Format = "debug"
	// FormatJSON prints a JSON array of spans.
	FormatJSON Format = "json"
	// FormatYAML prints a YAML sequence of spans.
	FormatYAML Format = "yaml"
	// FormatOverlay prints the source with every span styled in place.
	FormatOverlay Format = "overlay"
)

// ErrUnknownFormat is returned for an unknown [Format].
var ErrUnknownFormat = errors.New("unknown format")

// AllFormats lists every [Format] name.
var AllFormats = []string{
	string(FormatRecords),
	string(FormatDebug),
	string(FormatJSON),
	string(FormatYAML),
	string(FormatOverlay),
}

// ParseFormat returns the [Format] named s, ignoring case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if slices.Contains(AllFormats, string(f)) {
		return f, nil
	}

	return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, s, strings.Join(AllFormats, ", "))
}
