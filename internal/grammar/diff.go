package grammar

import (
	"fmt"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// Diff renders a unified diff between the original and corrected sentence.
// It returns an empty string when nothing changed.
func Diff(original, corrected string) string {
	if original == corrected {
		return ""
	}
	a, b := original+"\n", corrected+"\n"
	edits := myers.ComputeEdits(span.URIFromPath("original"), a, b)
	return fmt.Sprint(gotextdiff.ToUnified("original", "corrected", a, edits))
}
