package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mozilla-ai/triage/internal/cmd/output"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

// OutputFormats is a collection of OutputFormat with helper receivers.
type OutputFormats []OutputFormat

const (
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
	FormatText OutputFormat = "text"
)

func AllowedOutputFormats() OutputFormats {
	formats := []OutputFormat{
		FormatJSON,
		FormatText,
		FormatYAML,
	}

	slices.Sort(formats)

	return formats
}

// String implements fmt.Stringer for a collection of output formats,
// converting them to a comma separated string.
func (f *OutputFormats) String() string {
	efs := *f
	out := make([]string, len(efs))
	for i := range efs {
		out[i] = efs[i].String()
	}
	return strings.Join(out, ", ")
}

// String implements fmt.Stringer for an output format.
// This is also required by Cobra as part of implementing flag.Value.
func (f *OutputFormat) String() string {
	return strings.ToLower(string(*f))
}

// Set is used by Cobra to set the output format value from a string.
// This is also required by Cobra as part of implementing flag.Value.
func (f *OutputFormat) Set(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	allowed := AllowedOutputFormats()

	for _, a := range allowed {
		if string(a) == v {
			*f = OutputFormat(v)
			return nil
		}
	}

	return fmt.Errorf("invalid format '%s', must be one of %v", v, allowed.String())
}

// Type is used by Cobra to get the 'type' of an output format for display purposes.
// This is also required by Cobra as part of implementing flag.Value.
func (f *OutputFormat) Type() string {
	return "format"
}

// NewHandler returns the output handler for format f writing to w.
// Text output is rendered by p, the structured formats use their struct tags.
func NewHandler[T any](f OutputFormat, w io.Writer, p output.Printer[T]) (output.Handler[T], error) {
	switch f {
	case FormatJSON:
		return output.NewJSONHandler[T](w, 2), nil
	case FormatYAML:
		return output.NewYAMLHandler[T](w, 2), nil
	case FormatText:
		return output.NewTextHandler[T](w, p), nil
	default:
		allowed := AllowedOutputFormats()
		return nil, fmt.Errorf("invalid format '%s', must be one of %v", f, allowed.String())
	}
}
