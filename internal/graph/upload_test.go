package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadFileSimple(t *testing.T) {
	content := []byte("small workbook payload")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/sites/site-1/drive/root:/Reports/q1.xlsx:/content", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, content, body)

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "new-1", "name": "q1.xlsx", "size": 22,
			"lastModifiedDateTime": "2026-01-02T10:00:00Z", "createdDateTime": "2026-01-02T10:00:00Z"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	item, err := c.UploadFile(context.Background(), "site-1", "/Reports/", "q1.xlsx",
		bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	assert.Equal(t, "new-1", item.ID)
	assert.Equal(t, "q1.xlsx", item.Name)
}

func TestUploadFileReplaceReturns200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Replacing an existing file returns 200, not 201.
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"id": "existing-1", "name": "q1.xlsx", "size": 4,
			"lastModifiedDateTime": "2026-01-02T10:00:00Z", "createdDateTime": "2025-06-01T10:00:00Z"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	item, err := c.UploadFile(context.Background(), "site-1", "", "q1.xlsx",
		bytes.NewReader([]byte("data")), 4)
	require.NoError(t, err)
	assert.Equal(t, "existing-1", item.ID)
}

func TestUploadFileLargeUsesSession(t *testing.T) {
	size := int64(uploadChunkSize + uploadChunkSize/2)
	content := bytes.Repeat([]byte("x"), int(size))

	var (
		mu     sync.Mutex
		ranges []string
	)

	var srv *httptest.Server

	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			assert.Contains(t, r.URL.Path, ":/createUploadSession")
			fmt.Fprintf(w, `{"uploadUrl": "%s/upload-session/xyz"}`, srv.URL)
		case r.Method == http.MethodPut:
			body, _ := io.ReadAll(r.Body)

			mu.Lock()
			ranges = append(ranges, r.Header.Get("Content-Range"))
			last := int64(len(ranges)) * uploadChunkSize
			mu.Unlock()

			assert.NotEmpty(t, body)

			if last >= size {
				fmt.Fprint(w, `{"id": "big-1", "name": "big.xlsx", "size": 0,
					"lastModifiedDateTime": "2026-01-02T10:00:00Z", "createdDateTime": "2026-01-02T10:00:00Z"}`)

				return
			}

			w.WriteHeader(http.StatusAccepted)
			fmt.Fprint(w, `{"nextExpectedRanges": []}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	item, err := c.UploadFile(context.Background(), "site-1", "Reports", "big.xlsx",
		bytes.NewReader(content), size)
	require.NoError(t, err)
	assert.Equal(t, "big-1", item.ID)

	require.Len(t, ranges, 2)
	assert.Equal(t, fmt.Sprintf("bytes 0-%d/%d", uploadChunkSize-1, size), ranges[0])
	assert.Equal(t, fmt.Sprintf("bytes %d-%d/%d", uploadChunkSize, size-1, size), ranges[1])
}
