package output

import (
	"io"
)

// TextHandler renders items through a Printer for human consumption.
// Errors are returned unchanged so the command surface reports them.
type TextHandler[T any] struct {
	out     io.Writer
	printer Printer[T]
	empty   string
}

// NewTextHandler constructs a TextHandler that prints items with p.
func NewTextHandler[T any](w io.Writer, p Printer[T]) *TextHandler[T] {
	return &TextHandler[T]{
		out:     w,
		printer: p,
		empty:   "No items found\n",
	}
}

// WithEmptyMessage sets the text written when there are no items.
func (h *TextHandler[T]) WithEmptyMessage(msg string) *TextHandler[T] {
	h.empty = msg
	return h
}

// Writer returns the underlying io.Writer where text will be written.
func (h *TextHandler[T]) Writer() io.Writer {
	return h.out
}

// HandleResult prints a single item between the header and footer.
func (h *TextHandler[T]) HandleResult(item T) error {
	return h.HandleResults(item)
}

// HandleResults prints every item between the header and footer.
func (h *TextHandler[T]) HandleResults(items ...T) error {
	if len(items) == 0 {
		_, _ = io.WriteString(h.out, h.empty)
		return nil
	}

	h.printer.Header(h.out, len(items))

	for _, it := range items {
		if err := h.printer.Item(h.out, it); err != nil {
			return err
		}
	}

	h.printer.Footer(h.out, len(items))

	return nil
}

// HandleError returns err unchanged.
func (h *TextHandler[T]) HandleError(err error) error {
	return err
}
