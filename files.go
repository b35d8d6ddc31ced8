package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spexcel/spexcel/internal/graph"
	"github.com/spexcel/spexcel/internal/session"
)

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List Excel workbooks in the configured library folder",
		Args:  cobra.NoArgs,
		RunE:  runLs,
	}

	cmd.Flags().Bool("all", false, "list every item, not just Excel workbooks")

	return cmd
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [name] [local-path]",
		Short: "Download a workbook",
		Long: `Download one workbook from the library folder, or every workbook with
--all. The default destination is the configured download directory.`,
		Args: cobra.MaximumNArgs(2),
		RunE: runGet,
	}

	cmd.Flags().Bool("all", false, "download every Excel workbook in the folder")

	return cmd
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-path> [remote-name]",
		Short: "Upload a file to the library folder",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runPut,
	}
}

// connectedSession builds a session signed in from saved credentials. With
// auto_connect set, the site is resolved eagerly so misconfiguration
// surfaces before any transfer starts.
func connectedSession(ctx context.Context) (*session.Session, error) {
	sess := newSession()

	if err := sess.AuthenticateSilent(ctx); err != nil {
		if errors.Is(err, graph.ErrNotLoggedIn) {
			return nil, errors.New("not logged in — run 'spexcel login' first")
		}

		return nil, err
	}

	if resolvedCfg.AutoConnect {
		if _, err := sess.ResolveSite(ctx); err != nil {
			return nil, err
		}
	}

	return sess, nil
}

func runLs(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sess, err := connectedSession(ctx)
	if err != nil {
		return err
	}

	all, _ := cmd.Flags().GetBool("all")

	var items []graph.Item
	if all {
		items, err = sess.ListFiles(ctx)
	} else {
		items, err = sess.ListExcelFiles(ctx)
	}

	if err != nil {
		return err
	}

	if flagJSON {
		return printItemsJSON(items)
	}

	if len(items) == 0 {
		statusf("No files found.\n")

		return nil
	}

	rows := make([][]string, 0, len(items))

	for _, item := range items {
		kind := "file"
		if item.IsFolder {
			kind = "folder"
		}

		rows = append(rows, []string{
			item.Name,
			kind,
			formatSize(item.Size),
			formatTime(item.ModifiedAt),
		})
	}

	printTable(os.Stdout, []string{"NAME", "TYPE", "SIZE", "MODIFIED"}, rows)

	return nil
}

// itemJSON is the stable JSON shape for ls --json. The ephemeral download
// URL is deliberately absent.
type itemJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Folder     bool   `json:"folder"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
	WebURL     string `json:"web_url,omitempty"`
}

func printItemsJSON(items []graph.Item) error {
	out := make([]itemJSON, 0, len(items))

	for _, item := range items {
		out = append(out, itemJSON{
			ID:         item.ID,
			Name:       item.Name,
			Folder:     item.IsFolder,
			Size:       item.Size,
			ModifiedAt: item.ModifiedAt.Format("2006-01-02T15:04:05Z07:00"),
			WebURL:     item.WebURL,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	all, _ := cmd.Flags().GetBool("all")
	if all {
		if len(args) > 1 {
			return errors.New("get --all takes at most a destination directory")
		}

		destDir := resolvedCfg.DownloadDir
		if len(args) == 1 {
			destDir = args[0]
		}

		return runGetAll(ctx, destDir)
	}

	if len(args) == 0 {
		return errors.New("get needs a workbook name (or --all)")
	}

	name := args[0]

	destPath := filepath.Join(resolvedCfg.DownloadDir, name)
	if len(args) == 2 {
		destPath = args[1]
	}

	sess, err := connectedSession(ctx)
	if err != nil {
		return err
	}

	if err := sess.DownloadFile(ctx, name, destPath); err != nil {
		return err
	}

	statusf("Downloaded %s to %s\n", name, destPath)

	return nil
}

func runGetAll(ctx context.Context, destDir string) error {
	sess, err := connectedSession(ctx)
	if err != nil {
		return err
	}

	paths, err := sess.DownloadAll(ctx, destDir)
	if err != nil {
		return err
	}

	statusf("Downloaded %d workbooks to %s\n", len(paths), destDir)

	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	localPath := args[0]

	remoteName := ""
	if len(args) == 2 {
		remoteName = args[1]
	}

	sess, err := connectedSession(ctx)
	if err != nil {
		return err
	}

	item, err := sess.UploadFile(ctx, localPath, remoteName)
	if err != nil {
		return err
	}

	statusf("Uploaded %s (%s)\n", item.Name, formatSize(item.Size))

	return nil
}
