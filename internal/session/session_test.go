package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spexcel/spexcel/internal/config"
	"github.com/spexcel/spexcel/internal/graph"
)

type staticToken string

func (s staticToken) Token() (string, error) {
	return string(s), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SiteURL = "https://contoso.sharepoint.com/sites/Team"
	cfg.Folder = "Reports"

	return cfg
}

// newTestSession builds a Session whose client talks to the given handler
// and whose silent flow always succeeds.
func newTestSession(t *testing.T, cfg *config.Config, handler http.Handler) (*Session, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := testLogger()

	s := &Session{
		cfg:    cfg,
		logger: logger,
	}

	s.silentSource = func(_ context.Context) (graph.TokenSource, error) {
		return staticToken("tok"), nil
	}
	s.browserLogin = func(_ context.Context) error {
		return errors.New("browser flow not available in tests")
	}
	s.deviceLogin = func(_ context.Context, _ func(code, uri string)) error {
		return errors.New("device flow not available in tests")
	}
	s.newClient = func(ts graph.TokenSource) *graph.Client {
		return graph.NewClient(srv.URL, nil, ts, logger, "")
	}

	return s, srv
}

// siteHandler answers the site resolution request all file operations make.
func siteHandler(mux *http.ServeMux) {
	mux.HandleFunc("/sites/contoso.sharepoint.com:/sites/Team", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id": "site-1", "name": "Team", "displayName": "Team", "webUrl": "https://contoso.sharepoint.com/sites/Team"}`)
	})
}

func TestIsExcelFile(t *testing.T) {
	assert.True(t, IsExcelFile("report.xlsx"))
	assert.True(t, IsExcelFile("macro.xlsm"))
	assert.True(t, IsExcelFile("legacy.xls"))
	assert.True(t, IsExcelFile("Q2.XLSM"))
	assert.True(t, IsExcelFile("MIXED.Xlsx"))
	assert.False(t, IsExcelFile("report.pdf"))
	assert.False(t, IsExcelFile("xlsx"))
	assert.False(t, IsExcelFile("notes.xlsx.txt"))
	assert.False(t, IsExcelFile(""))
}

func TestListExcelFilesFiltersAndPreservesOrder(t *testing.T) {
	mux := http.NewServeMux()
	siteHandler(mux)

	mux.HandleFunc("/sites/site-1/drive/root:/Reports:/children", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"value": [
			{"id": "1", "name": "report.pdf", "size": 10, "file": {},
			 "lastModifiedDateTime": "2026-01-01T10:00:00Z", "createdDateTime": "2026-01-01T10:00:00Z"},
			{"id": "2", "name": "Q1.xlsx", "size": 20, "file": {},
			 "lastModifiedDateTime": "2026-01-01T10:00:00Z", "createdDateTime": "2026-01-01T10:00:00Z"},
			{"id": "3", "name": "Q2.XLSM", "size": 30, "file": {},
			 "lastModifiedDateTime": "2026-01-01T10:00:00Z", "createdDateTime": "2026-01-01T10:00:00Z"},
			{"id": "4", "name": "Archive.xlsx", "size": 0, "folder": {},
			 "lastModifiedDateTime": "2026-01-01T10:00:00Z", "createdDateTime": "2026-01-01T10:00:00Z"}
		]}`)
	})

	s, _ := newTestSession(t, testConfig(), mux)
	require.NoError(t, s.AuthenticateSilent(context.Background()))

	items, err := s.ListExcelFiles(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "Q1.xlsx", items[0].Name)
	assert.Equal(t, "Q2.XLSM", items[1].Name)
}

func TestTestConnectionFailsWithoutResolutionWhenNotAuthenticated(t *testing.T) {
	var requests atomic.Int32

	s, _ := newTestSession(t, testConfig(), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))

	// No AuthenticateSilent call: the session holds no client.
	err := s.TestConnection(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	// Authentication failed, so no site resolution was even attempted.
	assert.Equal(t, int32(0), requests.Load())
}

func TestTestConnectionOK(t *testing.T) {
	mux := http.NewServeMux()
	siteHandler(mux)

	mux.HandleFunc("/me", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id": "u1", "displayName": "Ada", "mail": "ada@contoso.com"}`)
	})

	s, _ := newTestSession(t, testConfig(), mux)
	require.NoError(t, s.AuthenticateSilent(context.Background()))

	assert.NoError(t, s.TestConnection(context.Background()))
}

func TestResolveSiteCachesPerSession(t *testing.T) {
	var resolutions atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/sites/contoso.sharepoint.com:/sites/Team", func(w http.ResponseWriter, _ *http.Request) {
		resolutions.Add(1)
		fmt.Fprint(w, `{"id": "site-1", "name": "Team", "displayName": "Team"}`)
	})

	s, _ := newTestSession(t, testConfig(), mux)
	require.NoError(t, s.AuthenticateSilent(context.Background()))

	for range 3 {
		site, err := s.ResolveSite(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "site-1", site.ID)
	}

	assert.Equal(t, int32(1), resolutions.Load())
}

func TestResolveSiteNoSiteURL(t *testing.T) {
	cfg := testConfig()
	cfg.SiteURL = ""

	s, _ := newTestSession(t, cfg, http.NewServeMux())
	require.NoError(t, s.AuthenticateSilent(context.Background()))

	_, err := s.ResolveSite(context.Background())
	assert.ErrorIs(t, err, ErrNoSiteURL)
}

func TestWithAuthRetryRetriesOnceOnUnauthorized(t *testing.T) {
	var (
		meCalls     atomic.Int32
		silentCalls atomic.Int32
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, _ *http.Request) {
		if meCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		fmt.Fprint(w, `{"id": "u1", "displayName": "Ada", "mail": "ada@contoso.com"}`)
	})

	s, _ := newTestSession(t, testConfig(), mux)

	baseSilent := s.silentSource
	s.silentSource = func(ctx context.Context) (graph.TokenSource, error) {
		silentCalls.Add(1)

		return baseSilent(ctx)
	}

	require.NoError(t, s.AuthenticateSilent(context.Background()))

	user, err := s.Whoami(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Ada", user.DisplayName)
	assert.Equal(t, int32(2), meCalls.Load())
	// One silent call for initial auth, one for the 401 retry.
	assert.Equal(t, int32(2), silentCalls.Load())
}

func TestWithAuthRetryGivesUpAfterSecondUnauthorized(t *testing.T) {
	var meCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, _ *http.Request) {
		meCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	s, _ := newTestSession(t, testConfig(), mux)
	require.NoError(t, s.AuthenticateSilent(context.Background()))

	_, err := s.Whoami(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrUnauthorized)
	assert.Equal(t, int32(2), meCalls.Load())
}

func TestAuthenticateFallsBackToBrowser(t *testing.T) {
	var (
		browserRuns int
		loggedIn    atomic.Bool
	)

	s, _ := newTestSession(t, testConfig(), http.NewServeMux())

	s.silentSource = func(_ context.Context) (graph.TokenSource, error) {
		if !loggedIn.Load() {
			return nil, graph.ErrNotLoggedIn
		}

		return staticToken("tok"), nil
	}
	s.browserLogin = func(_ context.Context) error {
		browserRuns++
		loggedIn.Store(true)

		return nil
	}

	require.NoError(t, s.Authenticate(context.Background()))
	assert.Equal(t, 1, browserRuns)
	assert.True(t, s.Authenticated())
}

func TestAuthenticateConditionalAccessSuggestsDeviceCode(t *testing.T) {
	s, _ := newTestSession(t, testConfig(), http.NewServeMux())

	s.silentSource = func(_ context.Context) (graph.TokenSource, error) {
		return nil, graph.ErrNotLoggedIn
	}
	s.browserLogin = func(_ context.Context) error {
		return errors.New("oauth2: AADSTS53003: Access has been blocked by Conditional Access policies")
	}

	err := s.Authenticate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device code")
	assert.False(t, s.Authenticated())
}

func TestAuthenticateDeviceCode(t *testing.T) {
	var displayed bool

	s, _ := newTestSession(t, testConfig(), http.NewServeMux())

	s.deviceLogin = func(_ context.Context, display func(code, uri string)) error {
		display("ABC-123", "https://microsoft.com/devicelogin")

		return nil
	}

	err := s.AuthenticateDeviceCode(context.Background(), func(code, uri string) {
		displayed = true

		assert.Equal(t, "ABC-123", code)
		assert.Equal(t, "https://microsoft.com/devicelogin", uri)
	})
	require.NoError(t, err)

	assert.True(t, displayed)
	assert.True(t, s.Authenticated())
}
