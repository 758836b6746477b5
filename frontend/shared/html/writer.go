package html

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Writer accumulates markup and remembers the first write error so view
// code can write straight through and check once.
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted markup.
func (w *Writer) Raw(parts ...string) {
	for _, p := range parts {
		if w.err != nil {
			return
		}
		_, w.err = io.WriteString(w.w, p)
	}
}

// Text writes s escaped.
func (w *Writer) Text(s string) {
	w.Raw(templ.EscapeString(s))
}

// Textf formats trusted markup with escaped string arguments.
func (w *Writer) Textf(format string, args ...any) {
	for i, a := range args {
		switch v := a.(type) {
		case string:
			args[i] = templ.EscapeString(v)
		case fmt.Stringer:
			args[i] = templ.EscapeString(v.String())
		}
	}
	w.Raw(fmt.Sprintf(format, args...))
}

// Render writes c inline.
func (w *Writer) Render(ctx context.Context, c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}

// Err is the first write error.
func (w *Writer) Err() error {
	return w.err
}
