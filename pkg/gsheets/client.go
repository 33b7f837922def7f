// Package gsheets builds Google API handles for reading the reservation
// spreadsheet. Credentials are acquired once, explicitly, and the resulting
// Client is passed to whoever needs it.
package gsheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMIME = "application/vnd.google-apps.spreadsheet"

var (
	// ErrSpreadsheetNotFound is returned when no spreadsheet matches a title.
	ErrSpreadsheetNotFound = errors.New("spreadsheet not found")
	// ErrAuthorizationRequired means an OAuth client secret was configured
	// but no user token has been stored yet.
	ErrAuthorizationRequired = errors.New("google authorization required: run `room-monitor auth`")
)

// Config points at the credential material.
//
// CredentialsFile is either a service-account key or an OAuth client secret
// ("installed" or "web"). With a client secret, TokenFile holds the user
// token written by Authorize and is rewritten whenever the token refreshes.
type Config struct {
	CredentialsFile string
	TokenFile       string
	Logger          *zap.Logger
}

// Client bundles the Sheets and Drive services sharing one credential.
type Client struct {
	Sheets *sheets.Service
	Drive  *drive.Service
}

var scopes = []string{
	sheets.SpreadsheetsReadonlyScope,
	drive.DriveMetadataReadonlyScope,
}

// Acquire loads credentials and builds the API services.
func Acquire(ctx context.Context, cfg Config, extra ...option.ClientOption) (*Client, error) {
	opts, err := credentialOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Client{Sheets: sheetsSvc, Drive: driveSvc}, nil
}

// ResolveSpreadsheetID finds a spreadsheet by its exact title.
func (c *Client) ResolveSpreadsheetID(ctx context.Context, title string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(title), spreadsheetMIME)
	list, err := c.Drive.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("search spreadsheet %q: %w", title, err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("%w: %q", ErrSpreadsheetNotFound, title)
	}
	return list.Files[0].Id, nil
}

func credentialOptions(ctx context.Context, cfg Config) ([]option.ClientOption, error) {
	if cfg.CredentialsFile == "" {
		return nil, errors.New("google credentials file is not configured")
	}
	raw, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	if !isClientSecret(raw) {
		return []option.ClientOption{
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(scopes...),
		}, nil
	}

	if cfg.TokenFile == "" {
		return nil, fmt.Errorf("%w (token file is not configured)", ErrAuthorizationRequired)
	}
	oauthCfg, err := google.ConfigFromJSON(raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secret: %w", err)
	}
	tok, err := loadToken(cfg.TokenFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w (no token at %s)", ErrAuthorizationRequired, cfg.TokenFile)
	}
	if err != nil {
		return nil, err
	}
	ts := &persistingTokenSource{
		base:   oauthCfg.TokenSource(ctx, tok),
		path:   cfg.TokenFile,
		logger: loggerOrNop(cfg.Logger),
		last:   tok.AccessToken,
	}
	return []option.ClientOption{option.WithTokenSource(oauth2.ReuseTokenSource(tok, ts))}, nil
}

// isClientSecret reports whether raw is an OAuth client secret rather than a
// service-account key.
func isClientSecret(raw []byte) bool {
	var probe struct {
		Installed json.RawMessage `json:"installed"`
		Web       json.RawMessage `json:"web"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return len(probe.Installed) > 0 || len(probe.Web) > 0
}

func loadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(raw, tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// persistingTokenSource writes refreshed tokens back to disk so the next
// process start does not need a new authorization.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	path   string
	logger *zap.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last {
		return tok, nil
	}
	if err := saveToken(s.path, tok); err != nil {
		s.logger.Warn("refreshed google token not persisted", zap.String("path", s.path), zap.Error(err))
		return tok, nil
	}
	s.last = tok.AccessToken
	return tok, nil
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
