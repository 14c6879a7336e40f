package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// FormatSummary renders the run as a table with one row per spec and test
// and a footer with the run totals.
func FormatSummary(r *types.RunReport) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(fmt.Sprintf("Run %s", r.RunID))

	t.AppendHeader(table.Row{
		"Type", "ID", "Contexts", "Passed", "Failed", "Warnings", "Skipped", "Status",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Contexts", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Warnings", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
	})

	for _, spec := range r.Specs {
		var specSteps types.Counter
		contexts := 0
		for _, test := range spec.Tests {
			contexts += len(test.Contexts)
			for _, c := range test.Contexts {
				for _, s := range c.Steps {
					specSteps.Add(s.Status)
				}
			}
		}
		t.AppendRow(table.Row{
			"Spec", spec.SpecID, contexts,
			specSteps.Pass, specSteps.Fail, specSteps.Warning, specSteps.Skipped,
			spec.Status,
		})

		for _, test := range spec.Tests {
			var steps types.Counter
			for _, c := range test.Contexts {
				for _, s := range c.Steps {
					steps.Add(s.Status)
				}
			}
			t.AppendRow(table.Row{
				"Test", fmt.Sprintf("├── %s", test.TestID), len(test.Contexts),
				steps.Pass, steps.Fail, steps.Warning, steps.Skipped,
				test.Status,
			})
		}
		t.AppendSeparator()
	}

	switch r.Status {
	case types.StatusFail:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case types.StatusWarning, types.StatusSkipped:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	steps := r.Summary.Steps
	t.AppendFooter(table.Row{
		"TOTAL", "", r.Summary.Contexts.Total(),
		steps.Pass, steps.Fail, steps.Warning, steps.Skipped,
		r.Status,
	})

	t.Render()
	return buf.String()
}

// WriteJSON writes the report to path, creating parent directories.
func WriteJSON(path string, r *types.RunReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report %q: %w", path, err)
	}
	return nil
}
