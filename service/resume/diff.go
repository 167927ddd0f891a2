package resume

import (
	"encoding/json"

	"github.com/pmezard/go-difflib/difflib"
)

// ArgumentsDiff renders a unified diff between the original and edited
// arguments, each formatted as indented JSON with sorted keys.
func ArgumentsDiff(original, edited map[string]interface{}) (string, error) {
	before, err := json.MarshalIndent(original, "", "  ")
	if err != nil {
		return "", err
	}
	after, err := json.MarshalIndent(edited, "", "  ")
	if err != nil {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before) + "\n"),
		B:        difflib.SplitLines(string(after) + "\n"),
		FromFile: "proposed",
		ToFile:   "edited",
		Context:  2,
	})
}
