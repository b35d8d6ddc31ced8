package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// SimpleUploadMaxSize is the largest payload accepted by the single-request
// content PUT endpoint. Larger files go through an upload session.
const SimpleUploadMaxSize = 4 * 1024 * 1024

// uploadChunkSize is the fragment size for upload sessions. The API requires
// fragments to be multiples of 320 KiB; 10 MiB keeps request counts low
// while staying well under the per-request ceiling.
const uploadChunkSize = 32 * 320 * 1024 // 10 MiB

// UploadFile uploads a file to a folder in the site's default drive,
// choosing between the simple PUT and an upload session based on size.
// Existing files with the same name are replaced.
func (c *Client) UploadFile(ctx context.Context, siteID, folderPath, name string, content io.ReadSeeker, size int64) (*Item, error) {
	remotePath := strings.Trim(folderPath, "/")
	if remotePath != "" {
		remotePath += "/"
	}

	remotePath += name

	c.logger.Info("uploading file",
		slog.String("site_id", siteID),
		slog.String("path", remotePath),
		slog.Int64("size", size),
	)

	if size <= SimpleUploadMaxSize {
		return c.uploadSimple(ctx, siteID, remotePath, content)
	}

	return c.uploadSession(ctx, siteID, remotePath, content, size)
}

// uploadSimple PUTs the whole payload in one request. The API returns 201
// for new files and 200 when replacing an existing file; both are success.
func (c *Client) uploadSimple(ctx context.Context, siteID, remotePath string, content io.ReadSeeker) (*Item, error) {
	apiPath := fmt.Sprintf("/sites/%s/drive/root:/%s:/content", siteID, encodePathSegments(remotePath))

	resp, err := c.doPreAuthRetry(ctx, "upload", func() (*http.Request, error) {
		if _, err := content.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("graph: rewinding upload content: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+apiPath, content)
		if err != nil {
			return nil, fmt.Errorf("graph: creating upload request: %w", err)
		}

		tok, err := c.token.Token()
		if err != nil {
			return nil, fmt.Errorf("obtaining token: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Content-Type", "application/octet-stream")

		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeItemBody(resp.Body, c.logger)
}

type uploadSessionResponse struct {
	UploadURL string `json:"uploadUrl"`
}

// uploadSession creates an upload session and sends the content in
// 320 KiB-aligned fragments. The session URL is pre-authenticated and is
// never logged.
func (c *Client) uploadSession(ctx context.Context, siteID, remotePath string, content io.ReadSeeker, size int64) (*Item, error) {
	createPath := fmt.Sprintf("/sites/%s/drive/root:/%s:/createUploadSession",
		siteID, encodePathSegments(remotePath))

	reqBody := []byte(`{"item":{"@microsoft.graph.conflictBehavior":"replace"}}`)

	resp, err := c.Do(ctx, http.MethodPost, createPath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("graph: creating upload session: %w", err)
	}

	var usr uploadSessionResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&usr)
	resp.Body.Close()

	if decodeErr != nil {
		return nil, fmt.Errorf("graph: decoding upload session response: %w", decodeErr)
	}

	if usr.UploadURL == "" {
		return nil, errors.New("graph: upload session response has no uploadUrl")
	}

	var item *Item

	for offset := int64(0); offset < size; offset += uploadChunkSize {
		end := offset + uploadChunkSize
		if end > size {
			end = size
		}

		item, err = c.uploadChunk(ctx, usr.UploadURL, content, offset, end, size)
		if err != nil {
			return nil, err
		}

		c.logger.Debug("uploaded chunk",
			slog.Int64("offset", offset),
			slog.Int64("end", end),
			slog.Int64("total", size),
		)
	}

	if item == nil {
		return nil, errors.New("graph: upload session completed without an item response")
	}

	return item, nil
}

// uploadChunk PUTs one fragment [offset, end) of the content to the session
// URL. Intermediate fragments get a 202 with no item; the final fragment
// returns the completed drive item.
func (c *Client) uploadChunk(ctx context.Context, uploadURL string, content io.ReadSeeker, offset, end, total int64) (*Item, error) {
	resp, err := c.doPreAuthRetry(ctx, "upload chunk", func() (*http.Request, error) {
		if _, err := content.Seek(offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("graph: seeking upload content: %w", err)
		}

		chunk := io.LimitReader(content, end-offset)

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, chunk)
		if err != nil {
			return nil, fmt.Errorf("graph: creating chunk request: %w", err)
		}

		req.ContentLength = end - offset
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, end-1, total))
		req.Header.Set("User-Agent", c.userAgent)

		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Intermediate fragments return 202 Accepted with a nextExpectedRanges
	// body, not an item.
	if resp.StatusCode == http.StatusAccepted {
		return nil, nil
	}

	return decodeItemBody(resp.Body, c.logger)
}

// decodeItemBody decodes a driveItem JSON body into a normalized Item.
func decodeItemBody(body io.Reader, logger *slog.Logger) (*Item, error) {
	var dir driveItemResponse
	if err := json.NewDecoder(body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding upload response: %w", err)
	}

	item := dir.toItem(logger)

	return &item, nil
}
