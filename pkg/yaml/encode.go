package yaml

import (
	"io"

	"github.com/goccy/go-yaml"
)

// DefaultEncoderOptions are the options used by [NewEncoder] and [Marshal].
var DefaultEncoderOptions = []yaml.EncodeOption{
	yaml.Indent(2),
	yaml.IndentSequence(true),
}

// Encoder writes YAML documents.
type Encoder struct {
	e *yaml.Encoder
}

// NewEncoder creates an [Encoder] writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		e: yaml.NewEncoder(w, DefaultEncoderOptions...),
	}
}

// Encode writes v as a YAML document.
func (e *Encoder) Encode(v any) error {
	return e.e.Encode(v) //nolint:wrapcheck // Return the original error.
}

// Close flushes the encoder.
func (e *Encoder) Close() error {
	return e.e.Close() //nolint:wrapcheck // Return the original error.
}

// Marshal encodes v with [DefaultEncoderOptions].
func Marshal(v any) ([]byte, error) {
	return yaml.MarshalWithOptions(v, DefaultEncoderOptions...) //nolint:wrapcheck // Return the original error.
}
