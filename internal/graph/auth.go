package graph

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/spexcel/spexcel/internal/tokenfile"
)

// DefaultClientID is the Microsoft Graph Command Line Tools public client.
// It is pre-consented in most tenants, so no app registration is needed.
const DefaultClientID = "14d82eec-204b-4c2f-b7e8-296a70dab67e"

// DefaultTenant authenticates against any Azure AD organizational tenant.
const DefaultTenant = "organizations"

// DefaultScopes are the delegated permissions requested at sign-in.
// offline_access yields a refresh token for silent re-authentication.
var DefaultScopes = []string{
	"offline_access",
	"User.Read",
	"Sites.Read.All",
	"Files.ReadWrite.All",
}

// loginTimeout bounds how long an interactive flow waits for the user.
const loginTimeout = 5 * time.Minute

// Auth performs OAuth2 flows against the Microsoft identity platform and
// persists the resulting tokens.
type Auth struct {
	ClientID  string
	Tenant    string
	TokenPath string
	Logger    *slog.Logger

	// Endpoint overrides the Azure AD endpoint. Zero value means the real
	// identity platform; tests point it at an httptest server.
	Endpoint oauth2.Endpoint
}

func (a *Auth) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}

	return a.Logger
}

func (a *Auth) oauthConfig() *oauth2.Config {
	clientID := a.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	endpoint := a.Endpoint
	if endpoint.TokenURL == "" {
		tenant := a.Tenant
		if tenant == "" {
			tenant = DefaultTenant
		}

		endpoint = microsoft.AzureADEndpoint(tenant)
	}

	return &oauth2.Config{
		ClientID: clientID,
		Endpoint: endpoint,
		Scopes:   DefaultScopes,
	}
}

// LoginDeviceCode runs the OAuth2 device authorization flow. The display
// callback receives the user code and verification URI to show the user,
// then the call blocks polling for completion. The token is persisted on
// success.
func (a *Auth) LoginDeviceCode(ctx context.Context, display func(userCode, verificationURI string)) error {
	cfg := a.oauthConfig()

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	da, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return fmt.Errorf("graph: requesting device code: %w", err)
	}

	if da.UserCode == "" || da.VerificationURI == "" {
		return errors.New("graph: device code response missing user code or verification URI")
	}

	display(da.UserCode, da.VerificationURI)

	a.logger().Info("waiting for device code sign-in")

	tok, err := cfg.DeviceAccessToken(ctx, da)
	if err != nil {
		return fmt.Errorf("graph: device code sign-in: %w", err)
	}

	return a.saveToken(tok)
}

// LoginBrowser runs the authorization code flow with PKCE. A loopback HTTP
// server receives the redirect; openURL is called with the authorization URL
// (typically it launches the system browser). The token is persisted on
// success.
func (a *Auth) LoginBrowser(ctx context.Context, openURL func(url string) error) error {
	cfg := a.oauthConfig()

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("graph: starting loopback listener: %w", err)
	}

	cfg.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())

	state, err := randomState()
	if err != nil {
		return err
	}

	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	type callbackResult struct {
		code string
		err  error
	}

	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- callbackResult{err: errors.New("graph: authorization state mismatch")}

			return
		}

		if errCode := q.Get("error"); errCode != "" {
			http.Error(w, "sign-in failed", http.StatusBadRequest)
			results <- callbackResult{err: fmt.Errorf("graph: authorization failed: %s: %s",
				errCode, q.Get("error_description"))}

			return
		}

		fmt.Fprint(w, "<html><body>Sign-in complete. You can close this window.</body></html>")
		results <- callbackResult{code: q.Get("code")}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			results <- callbackResult{err: fmt.Errorf("graph: callback server: %w", serveErr)}
		}
	}()

	defer srv.Close()

	if err := openURL(authURL); err != nil {
		return fmt.Errorf("graph: opening browser: %w", err)
	}

	a.logger().Info("waiting for browser sign-in")

	var result callbackResult
	select {
	case result = <-results:
	case <-ctx.Done():
		return fmt.Errorf("graph: browser sign-in: %w", ctx.Err())
	}

	if result.err != nil {
		return result.err
	}

	tok, err := cfg.Exchange(ctx, result.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("graph: exchanging authorization code: %w", err)
	}

	return a.saveToken(tok)
}

// SilentTokenSource builds a TokenSource from the persisted token file.
// Expired access tokens are refreshed transparently and the refreshed token
// is written back to disk. Returns ErrNotLoggedIn when no token file exists.
func (a *Auth) SilentTokenSource(ctx context.Context) (TokenSource, error) {
	f, err := tokenfile.Load(a.TokenPath)
	if err != nil {
		if errors.Is(err, tokenfile.ErrNotFound) {
			return nil, ErrNotLoggedIn
		}

		return nil, err
	}

	cfg := a.oauthConfig()
	src := oauth2.ReuseTokenSource(f.Token, cfg.TokenSource(ctx, f.Token))

	return &persistingSource{
		src:     src,
		path:    a.TokenPath,
		account: f.Account,
		siteURL: f.SiteURL,
		last:    f.Token.AccessToken,
		logger:  a.logger(),
	}, nil
}

// Logout removes the persisted token file.
func (a *Auth) Logout() error {
	return tokenfile.Delete(a.TokenPath)
}

func (a *Auth) saveToken(tok *oauth2.Token) error {
	if err := tokenfile.Save(a.TokenPath, &tokenfile.File{Token: tok}); err != nil {
		return err
	}

	a.logger().Info("saved credentials",
		slog.String("path", a.TokenPath),
	)

	return nil
}

// persistingSource adapts an oauth2.TokenSource to the graph TokenSource
// interface and writes refreshed tokens back to the token file so the next
// run can authenticate silently.
type persistingSource struct {
	src     oauth2.TokenSource
	path    string
	account string
	siteURL string
	logger  *slog.Logger

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (string, error) {
	tok, err := p.src.Token()
	if err != nil {
		return "", fmt.Errorf("graph: acquiring token: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken != p.last {
		f := &tokenfile.File{Token: tok, Account: p.account, SiteURL: p.siteURL}
		if saveErr := tokenfile.Save(p.path, f); saveErr != nil {
			p.logger.Warn("failed to persist refreshed token",
				slog.String("error", saveErr.Error()),
			)
		} else {
			p.last = tok.AccessToken
		}
	}

	return tok.AccessToken, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("graph: generating state: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
