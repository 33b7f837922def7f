package gsheets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type authCallback struct {
	code string
	err  error
}

// Authorize runs the installed-app consent flow for the client secret in
// cfg.CredentialsFile and stores the resulting token in cfg.TokenFile.
//
// A loopback listener on 127.0.0.1 receives the redirect; open is handed the
// consent URL and is expected to show it to the user.
func Authorize(ctx context.Context, cfg Config, open func(authURL string) error) (*oauth2.Token, error) {
	if cfg.TokenFile == "" {
		return nil, errors.New("google token file is not configured")
	}
	raw, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read client secret: %w", err)
	}
	if !isClientSecret(raw) {
		return nil, errors.New("credentials file is not an OAuth client secret; service accounts need no authorization")
	}
	oauthCfg, err := google.ConfigFromJSON(raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secret: %w", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for oauth redirect: %w", err)
	}
	oauthCfg.RedirectURL = "http://" + ln.Addr().String() + "/"

	state := uuid.NewString()
	callbacks := make(chan authCallback, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, callbacks),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close() //nolint:errcheck

	if err := open(oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)); err != nil {
		return nil, fmt.Errorf("present consent url: %w", err)
	}

	var cb authCallback
	select {
	case cb = <-callbacks:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if cb.err != nil {
		return nil, cb.err
	}

	tok, err := oauthCfg.Exchange(ctx, cb.code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := saveToken(cfg.TokenFile, tok); err != nil {
		return nil, err
	}
	loggerOrNop(cfg.Logger).Info("google token stored", zap.String("path", cfg.TokenFile))
	return tok, nil
}

func callbackHandler(state string, callbacks chan<- authCallback) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		var cb authCallback
		switch {
		case q.Get("error") != "":
			cb.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
			http.Error(w, "authorization denied", http.StatusForbidden)
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		default:
			cb.code = q.Get("code")
			_, _ = fmt.Fprintln(w, "Authorization complete. You can close this window.")
		}
		select {
		case callbacks <- cb:
		default:
		}
	}
}
