package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/spexcel/spexcel/internal/graph"
)

// excelExtensions are the workbook file extensions this tool manages,
// lowercase with leading dot.
var excelExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xls":  true,
}

// IsExcelFile reports whether a file name has an Excel workbook extension.
// The comparison is case-insensitive, so "Q2.XLSM" matches.
func IsExcelFile(name string) bool {
	return excelExtensions[strings.ToLower(path.Ext(name))]
}

// ListFiles returns all items in the configured library folder,
// in server order.
func (s *Session) ListFiles(ctx context.Context) ([]graph.Item, error) {
	site, err := s.ResolveSite(ctx)
	if err != nil {
		return nil, err
	}

	var items []graph.Item

	err = s.withAuthRetry(ctx, func(c *graph.Client) error {
		var listErr error

		items, listErr = c.ListFolder(ctx, site.ID, s.cfg.Folder)

		return listErr
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// ListExcelFiles returns the Excel workbooks in the configured library
// folder. Folders and non-Excel files are filtered out; the server's
// ordering of the remaining items is preserved.
func (s *Session) ListExcelFiles(ctx context.Context) ([]graph.Item, error) {
	items, err := s.ListFiles(ctx)
	if err != nil {
		return nil, err
	}

	workbooks := make([]graph.Item, 0, len(items))

	for _, item := range items {
		if item.IsFolder || !IsExcelFile(item.Name) {
			continue
		}

		workbooks = append(workbooks, item)
	}

	s.logger.Info("listed workbooks",
		slog.Int("total_items", len(items)),
		slog.Int("workbooks", len(workbooks)),
	)

	return workbooks, nil
}

// DownloadFile downloads one file from the configured library folder to
// destPath. The write is atomic: content streams to a temp file in the
// destination directory which is renamed into place only on success, so a
// failed download never leaves a truncated file.
func (s *Session) DownloadFile(ctx context.Context, name, destPath string) error {
	site, err := s.ResolveSite(ctx)
	if err != nil {
		return err
	}

	remotePath := joinRemote(s.cfg.Folder, name)

	var item *graph.Item

	err = s.withAuthRetry(ctx, func(c *graph.Client) error {
		var getErr error

		item, getErr = c.GetItemByPath(ctx, site.ID, remotePath)

		return getErr
	})
	if err != nil {
		return fmt.Errorf("session: locating %s: %w", name, err)
	}

	if item.IsFolder {
		return fmt.Errorf("session: %s is a folder, not a file", name)
	}

	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("session: creating destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(destDir, ".download-*")
	if err != nil {
		return fmt.Errorf("session: creating temp file: %w", err)
	}

	tmpName := tmp.Name()

	written, err := s.downloadItem(ctx, item, tmp)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("session: closing temp file: %w", err)
	}

	if written != item.Size {
		os.Remove(tmpName)

		return fmt.Errorf("session: download of %s incomplete: got %d bytes, want %d", name, written, item.Size)
	}

	if err := os.Rename(tmpName, destPath); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("session: renaming download into place: %w", err)
	}

	s.logger.Info("downloaded file",
		slog.String("name", item.Name),
		slog.String("dest", destPath),
		slog.Int64("bytes", written),
	)

	return nil
}

// downloadItem streams the item content through the retry-aware client.
func (s *Session) downloadItem(ctx context.Context, item *graph.Item, w *os.File) (int64, error) {
	var written int64

	err := s.withAuthRetry(ctx, func(c *graph.Client) error {
		// Reset the temp file in case a prior attempt wrote partial data.
		if _, seekErr := w.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("session: rewinding temp file: %w", seekErr)
		}

		if truncErr := w.Truncate(0); truncErr != nil {
			return fmt.Errorf("session: truncating temp file: %w", truncErr)
		}

		var dlErr error

		written, dlErr = c.DownloadItem(ctx, item, w)

		return dlErr
	})
	if err != nil {
		return written, fmt.Errorf("session: downloading %s: %w", item.Name, err)
	}

	return written, nil
}

// DownloadAll downloads every Excel workbook in the configured folder to
// destDir, with parallelism bounded by the transfers config. Returns the
// local paths of the downloaded files. The first failure cancels the rest.
func (s *Session) DownloadAll(ctx context.Context, destDir string) ([]string, error) {
	workbooks, err := s.ListExcelFiles(ctx)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(workbooks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Transfers.ParallelDownloads)

	for i, wb := range workbooks {
		g.Go(func() error {
			dest := filepath.Join(destDir, wb.Name)
			if err := s.DownloadFile(gctx, wb.Name, dest); err != nil {
				return err
			}

			paths[i] = dest

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return paths, nil
}

// UploadFile uploads a local file into the configured library folder under
// the given remote name. An empty remoteName uses the local base name.
// Existing files with the same name are replaced.
func (s *Session) UploadFile(ctx context.Context, localPath, remoteName string) (*graph.Item, error) {
	site, err := s.ResolveSite(ctx)
	if err != nil {
		return nil, err
	}

	if remoteName == "" {
		remoteName = filepath.Base(localPath)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("session: opening %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("session: stat %s: %w", localPath, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("session: %s is a directory", localPath)
	}

	var item *graph.Item

	err = s.withAuthRetry(ctx, func(c *graph.Client) error {
		var upErr error

		item, upErr = c.UploadFile(ctx, site.ID, s.cfg.Folder, remoteName, f, info.Size())

		return upErr
	})
	if err != nil {
		return nil, fmt.Errorf("session: uploading %s: %w", remoteName, err)
	}

	s.logger.Info("uploaded file",
		slog.String("name", item.Name),
		slog.Int64("bytes", info.Size()),
	)

	return item, nil
}

// joinRemote joins a library folder and file name into a drive-root
// relative path without a leading slash.
func joinRemote(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}

	return folder + "/" + name
}
