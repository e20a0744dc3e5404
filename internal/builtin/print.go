package builtin

import (
	"fmt"
	"io"

	"github.com/tinyvm/tinyvm/internal/value"
)

// Print returns the BF_PRINT built-in bound to w: it formats each argument
// by its tag (spec.md §4.6), concatenates them with no separator — spec.md
// §4.6 says so explicitly, overriding original_source/vm/builtin.h's
// space-joined original, see SPEC_FULL.md §14 — appends a newline
// (unconditionally, even for argc == 0, per spec.md §6), and returns None.
func Print(w io.Writer) Func {
	return func(argc int, argv []value.Value) value.Value {
		var line string
		for i := 0; i < argc; i++ {
			line += argv[i].Format()
		}
		fmt.Fprintln(w, line)
		return value.NoneValue
	}
}
