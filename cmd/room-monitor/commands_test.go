package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/room-usage-monitor/internal/models"
	"github.com/noah-isme/room-usage-monitor/pkg/config"
)

func TestRenderSchedule(t *testing.T) {
	date := models.CivilDate{Year: 2025, Month: time.April, Day: 10}
	entries := []models.ScheduleEntry{{Date: date, Period: models.Period1, Booking: "○"}}

	data, err := renderSchedule(entries, "json", "R3-301", false)
	require.NoError(t, err)
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2025-04-10", decoded[0]["date"])

	data, err = renderSchedule(entries, "csv", "R3-301", false)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2025-04-10,1限,○,reserved")

	data, err = renderSchedule(entries, "pdf", "R3-301", false)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	_, err = renderSchedule(entries, "xml", "R3-301", false)
	assert.Error(t, err)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["once"])
	assert.True(t, names["schedule"])
	assert.True(t, names["auth"])
}

func TestRunCommandReturnsServerFailure(t *testing.T) {
	sensor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("t,Ｒ３ー４０１,x,800,a,b,c\n"))
	}))
	defer sensor.Close()

	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close() //nolint:errcheck

	cfg := testConfig(t, sensor.URL)
	cfg.Port = busy.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := newRunCommand(&session{cfg: cfg, logger: zap.NewNop()})
	cmd.SetArgs([]string{})

	err = cmd.ExecuteContext(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server")
	assert.NoError(t, ctx.Err())
}

func TestStopReason(t *testing.T) {
	failed := make(chan error, 1)
	assert.NoError(t, stopReason(failed, zap.NewNop()))

	failed <- errors.New("bind: address already in use")
	assert.ErrorContains(t, stopReason(failed, zap.NewNop()), "address already in use")
}

// consentFollower plays the user: it visits the consent URL's redirect with a code.
type consentFollower struct{}

func (consentFollower) Write(p []byte) (int, error) {
	for _, field := range strings.Fields(string(p)) {
		u, err := url.Parse(field)
		if err != nil || u.Query().Get("redirect_uri") == "" {
			continue
		}
		callback := u.Query().Get("redirect_uri") + "?code=cli-code&state=" + url.QueryEscape(u.Query().Get("state"))
		go func() {
			if resp, err := http.Get(callback); err == nil {
				_ = resp.Body.Close()
			}
		}()
	}
	return len(p), nil
}

func TestAuthCommandWritesToken(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"cli-token","refresh_token":"r","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	dir := t.TempDir()
	secretPath := filepath.Join(dir, "client_secret.json")
	secret := `{"installed":{"client_id":"id","client_secret":"s","auth_uri":"https://accounts.example.test/auth",` +
		`"token_uri":"` + tokenSrv.URL + `/token","redirect_uris":["http://localhost"]}}`
	require.NoError(t, os.WriteFile(secretPath, []byte(secret), 0o600))

	cfg := &config.Config{Sheets: config.SheetsConfig{
		CredentialsFile: secretPath,
		TokenFile:       filepath.Join(dir, "token.json"),
	}}
	cmd := newAuthCommand(&session{cfg: cfg, logger: zap.NewNop()})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(consentFollower{})
	cmd.SetArgs([]string{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "token.json")

	raw, err := os.ReadFile(cfg.Sheets.TokenFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "cli-token")
}
