package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spexcel/spexcel/internal/excel"
)

func newSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <name-or-path>",
		Short: "Inspect the sheets and tables of a workbook",
		Long: `Inspect a workbook's worksheets and defined tables. The argument is
either a local file path or the name of a workbook in the library
folder, which is downloaded to a temporary file first.`,
		Args: cobra.ExactArgs(1),
		RunE: runSheets,
	}
}

func runSheets(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	target := args[0]

	path := target

	if _, err := os.Stat(target); err != nil {
		// Not a local file; fetch it from the library.
		sess, connErr := connectedSession(ctx)
		if connErr != nil {
			return connErr
		}

		tmpDir, tmpErr := os.MkdirTemp("", "spexcel-sheets-")
		if tmpErr != nil {
			return fmt.Errorf("creating temp directory: %w", tmpErr)
		}
		defer os.RemoveAll(tmpDir)

		path = filepath.Join(tmpDir, filepath.Base(target))
		if dlErr := sess.DownloadFile(ctx, target, path); dlErr != nil {
			return dlErr
		}
	}

	info, err := excel.Inspect(path)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(info)
	}

	printWorkbookInfo(target, info)

	return nil
}

func printWorkbookInfo(name string, info *excel.WorkbookInfo) {
	fmt.Printf("%s: %d sheets\n\n", name, len(info.Sheets))

	rows := make([][]string, 0, len(info.Sheets))

	for _, sheet := range info.Sheets {
		headers := "-"
		if len(sheet.Headers) > 0 {
			headers = strings.Join(sheet.Headers, ", ")
		}

		rows = append(rows, []string{
			sheet.Name,
			fmt.Sprintf("%dx%d", sheet.Rows, sheet.Cols),
			headers,
		})
	}

	printTable(os.Stdout, []string{"SHEET", "SIZE", "HEADERS"}, rows)

	if len(info.Tables) == 0 {
		return
	}

	fmt.Printf("\n%d defined tables\n\n", len(info.Tables))

	tableRows := make([][]string, 0, len(info.Tables))

	for _, t := range info.Tables {
		tableRows = append(tableRows, []string{
			t.Name,
			t.Sheet,
			t.Range,
			fmt.Sprintf("%dx%d", t.Rows, t.Cols),
		})
	}

	printTable(os.Stdout, []string{"TABLE", "SHEET", "RANGE", "SIZE"}, tableRows)
}
