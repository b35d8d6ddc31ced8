// Package session ties authentication, site resolution, and file transfer
// together into one stateful connection to a SharePoint document library.
// All state lives on the Session value; there are no package-level globals.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spexcel/spexcel/internal/config"
	"github.com/spexcel/spexcel/internal/graph"
)

// Sentinel errors for session state.
var (
	// ErrNotAuthenticated is returned by operations that need a signed-in
	// user when no authentication has succeeded yet.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrNoSiteURL is returned when an operation needs a site but no site
	// URL is configured.
	ErrNoSiteURL = errors.New("session: no site URL configured")
)

// Session is a stateful connection to one SharePoint site. It owns the
// Graph client and caches the resolved site and drive so repeated
// operations don't re-resolve. A Session is safe for concurrent use.
type Session struct {
	cfg    *config.Config
	auth   *graph.Auth
	logger *slog.Logger

	mu     sync.Mutex
	client *graph.Client
	site   *graph.Site
	drive  *graph.Drive

	// Flow and construction seams. Production wiring is set by New;
	// tests substitute fakes.
	silentSource func(ctx context.Context) (graph.TokenSource, error)
	browserLogin func(ctx context.Context) error
	deviceLogin  func(ctx context.Context, display func(code, uri string)) error
	newClient    func(ts graph.TokenSource) *graph.Client
}

// New creates a Session from resolved configuration. No network calls are
// made until an operation needs them.
func New(cfg *config.Config, auth *graph.Auth, openURL func(url string) error, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{
		Timeout: config.Timeout(cfg.Network.DataTimeout, 60*time.Second),
	}

	s := &Session{
		cfg:    cfg,
		auth:   auth,
		logger: logger,
	}

	s.silentSource = auth.SilentTokenSource
	s.browserLogin = func(ctx context.Context) error {
		return auth.LoginBrowser(ctx, openURL)
	}
	s.deviceLogin = auth.LoginDeviceCode
	s.newClient = func(ts graph.TokenSource) *graph.Client {
		return graph.NewClient(graph.DefaultBaseURL, httpClient, ts, logger, cfg.Network.UserAgent)
	}

	return s
}

// Authenticate signs in, preferring the silent flow (saved token, refreshed
// if expired) and falling back to the interactive browser flow. When a
// tenant's conditional access policy blocks the browser flow, the returned
// error says to use the device code flow instead.
func (s *Session) Authenticate(ctx context.Context) error {
	ts, err := s.silentSource(ctx)
	if err == nil {
		// Silent sources can still fail at first use when the refresh
		// token is revoked or expired. Probe before accepting.
		if _, probeErr := ts.Token(); probeErr == nil {
			s.setClient(ts)
			s.logger.Info("authenticated silently")

			return nil
		}

		s.logger.Info("saved credentials are no longer valid, signing in interactively")
	} else if !errors.Is(err, graph.ErrNotLoggedIn) {
		return err
	}

	if err := s.browserLogin(ctx); err != nil {
		if graph.IsConditionalAccessBlocked(err) {
			return fmt.Errorf("sign-in blocked by conditional access policy, use device code sign-in: %w", err)
		}

		return err
	}

	return s.adoptSavedToken(ctx)
}

// AuthenticateDeviceCode signs in with the OAuth2 device authorization
// flow. The display callback receives the user code and verification URI.
func (s *Session) AuthenticateDeviceCode(ctx context.Context, display func(code, uri string)) error {
	if err := s.deviceLogin(ctx, display); err != nil {
		return err
	}

	return s.adoptSavedToken(ctx)
}

// AuthenticateSilent signs in using only saved credentials, never starting
// an interactive flow. Returns graph.ErrNotLoggedIn when there are none.
func (s *Session) AuthenticateSilent(ctx context.Context) error {
	return s.adoptSavedToken(ctx)
}

// adoptSavedToken builds the client from the token an interactive flow
// just persisted.
func (s *Session) adoptSavedToken(ctx context.Context) error {
	ts, err := s.silentSource(ctx)
	if err != nil {
		return err
	}

	s.setClient(ts)
	s.logger.Info("authenticated")

	return nil
}

func (s *Session) setClient(ts graph.TokenSource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.client = s.newClient(ts)
}

// Authenticated reports whether the session holds a usable client.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client != nil
}

func (s *Session) getClient() (*graph.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil, ErrNotAuthenticated
	}

	return s.client, nil
}

// Whoami returns the signed-in user's profile.
func (s *Session) Whoami(ctx context.Context) (*graph.User, error) {
	var user *graph.User

	err := s.withAuthRetry(ctx, func(c *graph.Client) error {
		var meErr error

		user, meErr = c.Me(ctx)

		return meErr
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ResolveSite resolves the configured site URL to its Graph identifier,
// caching the result for the life of the session.
func (s *Session) ResolveSite(ctx context.Context) (*graph.Site, error) {
	s.mu.Lock()
	cached := s.site
	s.mu.Unlock()

	if cached != nil {
		return cached, nil
	}

	if s.cfg.SiteURL == "" {
		return nil, ErrNoSiteURL
	}

	var site *graph.Site

	err := s.withAuthRetry(ctx, func(c *graph.Client) error {
		var resolveErr error

		site, resolveErr = c.ResolveSite(ctx, s.cfg.SiteURL)

		return resolveErr
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.site = site
	s.mu.Unlock()

	return site, nil
}

// Drive returns the resolved site's default document library drive,
// caching the result for the life of the session.
func (s *Session) Drive(ctx context.Context) (*graph.Drive, error) {
	s.mu.Lock()
	cached := s.drive
	s.mu.Unlock()

	if cached != nil {
		return cached, nil
	}

	site, err := s.ResolveSite(ctx)
	if err != nil {
		return nil, err
	}

	var drive *graph.Drive

	err = s.withAuthRetry(ctx, func(c *graph.Client) error {
		var driveErr error

		drive, driveErr = c.SiteDrive(ctx, site.ID)

		return driveErr
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.drive = drive
	s.mu.Unlock()

	return drive, nil
}

// TestConnection verifies that the session can reach the Graph API and,
// when a site URL is configured, that the site resolves. Without
// authentication it fails immediately and never attempts resolution.
func (s *Session) TestConnection(ctx context.Context) error {
	if _, err := s.getClient(); err != nil {
		return err
	}

	if _, err := s.Whoami(ctx); err != nil {
		return fmt.Errorf("session: connection test: %w", err)
	}

	if s.cfg.SiteURL == "" {
		return nil
	}

	if _, err := s.ResolveSite(ctx); err != nil {
		return fmt.Errorf("session: connection test: %w", err)
	}

	return nil
}

// withAuthRetry runs fn with the current client. On an unauthorized error
// it rebuilds the token source from disk (forcing a refresh) and retries
// once; tokens revoked mid-session otherwise poison every later call.
func (s *Session) withAuthRetry(ctx context.Context, fn func(c *graph.Client) error) error {
	c, err := s.getClient()
	if err != nil {
		return err
	}

	err = fn(c)
	if err == nil || !errors.Is(err, graph.ErrUnauthorized) {
		return err
	}

	s.logger.Info("request unauthorized, refreshing credentials and retrying")

	ts, srcErr := s.silentSource(ctx)
	if srcErr != nil {
		return fmt.Errorf("session: re-authenticating after unauthorized response: %w", srcErr)
	}

	s.setClient(ts)

	c, err = s.getClient()
	if err != nil {
		return err
	}

	return fn(c)
}
