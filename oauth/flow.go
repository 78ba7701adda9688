// Package oauth
// Author: momentics <momentics@gmail.com>
//
// One-shot OAuth callback application. The flow serves "/" on the local
// server until the provider redirects back with a code, trades the code
// for a token and stops the server.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/momentics/hioload-rtm/http1"
	"github.com/momentics/hioload-rtm/server"
)

// AuthorizeEndpoint is where the user grants access.
const AuthorizeEndpoint = "https://slack.com/oauth/authorize"

// ConfirmationPage is served once the token is obtained.
const ConfirmationPage = "<html><body><center><br><br>" +
	"<h4><span style=\"font-family: Verdana; color: #CCC;\">" +
	"You can close this window now and continue in the terminal." +
	"</span></h4></center></body></html>"

// RedirectURL is the callback address for a server bound to port.
func RedirectURL(port int) string {
	return fmt.Sprintf("http://localhost:%d/", port)
}

// ErrNoToken is returned when serving ends before a token arrived.
var ErrNoToken = errors.New("oauth: serving ended without a token")

// Exchanger trades an authorization code for an access token.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code, redirect string) (string, error)
}

// Flow holds the state of one authorization.
type Flow struct {
	ClientID    string
	Scopes      []string
	RedirectURL string

	state    string
	exchange Exchanger
	logger   *log.Logger

	mu    sync.Mutex
	token string
}

// NewFlow starts an authorization with a fresh state nonce. A nil logger
// writes to stderr.
func NewFlow(clientID string, scopes []string, redirect string, ex Exchanger, logger *log.Logger) *Flow {
	if logger == nil {
		logger = log.New(os.Stderr, "oauth: ", log.LstdFlags)
	}
	return &Flow{
		ClientID:    clientID,
		Scopes:      scopes,
		RedirectURL: redirect,
		state:       uuid.NewString(),
		exchange:    ex,
		logger:      logger,
	}
}

// State returns the nonce the callback must echo.
func (f *Flow) State() string { return f.state }

// AuthorizeURL is the page the user opens to grant access.
func (f *Flow) AuthorizeURL() string {
	q := url.Values{
		"client_id":    {f.ClientID},
		"scope":        {strings.Join(f.Scopes, " ")},
		"redirect_uri": {f.RedirectURL},
		"state":        {f.state},
	}
	return AuthorizeEndpoint + "?" + q.Encode()
}

// Token returns the access token, empty until the callback succeeded.
func (f *Flow) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// Handler answers callback requests. After a successful exchange it calls
// done, which normally stops the server.
func (f *Flow) Handler(ctx context.Context, done func()) server.Handler {
	return func(req *http1.Request, respond server.Responder) {
		if req.Path != "/" {
			respond(http1.TextResponse(404, "Invalid request."))
			return
		}
		code, ok := req.QueryValue("code")
		if !ok || code == "" {
			reason, _ := req.QueryValue("error")
			f.logger.Printf("callback without code (error=%q)", reason)
			respond(http1.TextResponse(200, "Could not get the code."))
			return
		}
		if state, ok := req.QueryValue("state"); ok && state != f.state {
			f.logger.Printf("callback with foreign state %q", state)
			respond(http1.TextResponse(400, "State mismatch."))
			return
		}
		token, err := f.exchange.ExchangeCode(ctx, code, f.RedirectURL)
		if err != nil {
			f.logger.Printf("code exchange failed: %v", err)
			respond(http1.TextResponse(200, fmt.Sprintf("Error occurred for token request: %v", err)))
			return
		}
		f.mu.Lock()
		f.token = token
		f.mu.Unlock()
		respond(http1.HTMLResponse(200, ConfirmationPage))
		if done != nil {
			done()
		}
	}
}

// Authenticate serves the callback on srv until a token arrives or ctx is
// cancelled. open, when set, is given the authorize URL.
func Authenticate(ctx context.Context, srv *server.Server, f *Flow, open func(string) error) (string, error) {
	u := f.AuthorizeURL()
	f.logger.Printf("waiting for authorization on port %d", srv.Port())
	if open != nil {
		if err := open(u); err != nil {
			f.logger.Printf("could not open browser: %v; visit %s", err, u)
		}
	} else {
		f.logger.Printf("visit %s", u)
	}
	if err := srv.Serve(ctx, f.Handler(ctx, srv.Stop)); err != nil {
		return "", fmt.Errorf("oauth: serve: %w", err)
	}
	if tok := f.Token(); tok != "" {
		return tok, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", ErrNoToken
}
