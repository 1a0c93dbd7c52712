package cli

import (
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/upstream"
)

var importDryRun bool

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Decode and validate without storing")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <FILE>",
	Short: "Import tickets exported by the campus portals",
	Long: `Import tickets from a JSON file ("-" reads stdin). The file holds one
record or an array of records in either portal shape: priority-based
records with an events list, or category-based records with a history list.
Tickets whose ID already exists are skipped.

Examples:
  campusdesk import export.json
  campusdesk import --dry-run - < export.json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}

	tickets, err := upstream.DecodeMany(data)
	if err != nil {
		return err
	}

	if importDryRun {
		if IsJSON() {
			return printJSON(tickets)
		}
		for _, t := range tickets {
			OutputLine("  %s  %-10s %s", orDash(t.Code), t.Status, truncate(t.Title, 50))
		}
		OutputLine("%d tickets decoded", len(tickets))
		return nil
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot(cmdContext(cmd), a.db, true)
	result, err := a.svc.Import(cmdContext(cmd), tickets)
	if err != nil {
		return err
	}
	if IsJSON() {
		return printJSON(result)
	}

	OutputLine("Imported %d, skipped %d, failed %d", len(result.Imported), len(result.Skipped), len(result.Failed))
	failed := make([]string, 0, len(result.Failed))
	for ref := range result.Failed {
		failed = append(failed, ref)
	}
	sort.Strings(failed)
	for _, ref := range failed {
		OutputLine("  %s: %s", ref, result.Failed[ref])
	}
	if len(result.Failed) > 0 {
		return errors.Validation("%d records could not be imported", len(result.Failed))
	}
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(rootCmd.InOrStdin())
		if err != nil {
			return nil, errors.Wrap(err, errors.KindParse, "failed to read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("file %s not found", path)
		}
		return nil, errors.Wrap(err, errors.KindGeneral, "failed to read %s", path)
	}
	return data, nil
}
