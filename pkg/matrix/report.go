package matrix

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteReport marshals the summaries of one invocation to filename as
// indented JSON, in a shape a hosting platform can render as CI checks.
// Discovery mode produces one summary per workflow.
func WriteReport(summaries []*Summary, filename string) error {
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o640); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
