package render

import (
	"fmt"
	"io"
	"strconv"

	"fileforge/internal/catalog"
	"fileforge/internal/domain"
	"fileforge/internal/params"
)

// PrintCatalog lists every operation with its accepted and offered formats.
func PrintCatalog(w io.Writer, cat catalog.Catalog) {
	for _, op := range domain.Operations {
		entry, ok := cat.Entry(op)
		if !ok {
			continue
		}
		out := "same as input"
		if choices := entry.OutputChoices(); choices != nil {
			out = FormatNames(choices)
		}
		fmt.Fprintf(w, "%-16s %s\n", op, op.Label())
		fmt.Fprintf(w, "  Accepts: %s\n", entry.AcceptedText())
		fmt.Fprintf(w, "  Output:  %s\n", out)
	}
}

// PrintControls lists the options an operation takes and their current values.
func PrintControls(w io.Writer, controls []params.Control) {
	if len(controls) == 0 {
		fmt.Fprintln(w, "  (no options)")
		return
	}
	for _, c := range controls {
		switch c.Kind {
		case params.KindSelect:
			fmt.Fprintf(w, "  %s=%s  %s, one of: %s\n", c.Key, c.Value, c.Label, FormatNames(c.Options))
		case params.KindRange:
			fmt.Fprintf(w, "  %s=%s  %s, %s-%s\n", c.Key, c.Value, c.Label, strconv.Itoa(c.Min), strconv.Itoa(c.Max))
		case params.KindCheckbox:
			fmt.Fprintf(w, "  %s=%t  %s\n", c.Key, c.Checked, c.Label)
		}
	}
}
