package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-usage-monitor/internal/models"
	"github.com/noah-isme/room-usage-monitor/pkg/storage"
)

var samplePayload = []byte(`{"status_text": "✅ 正常利用中"}`)

func TestFileStatusRepositoryPublish(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := NewFileStatusRepository(store, "")

	require.NoError(t, repo.Publish(context.Background(), models.StatusReport{}, samplePayload))

	data, err := store.Read("status.json")
	require.NoError(t, err)
	assert.Equal(t, samplePayload, data)
	assert.Equal(t, "file", repo.Name())
}

type githubPut struct {
	Message string  `json:"message"`
	Content string  `json:"content"`
	SHA     *string `json:"sha"`
	Branch  string  `json:"branch"`
}

func newGitHubServer(t *testing.T, existingSHA string, lookupStatus int) (*httptest.Server, *githubPut) {
	t.Helper()
	var mu sync.Mutex
	captured := &githubPut{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/rooms/contents/status.json", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "main", r.URL.Query().Get("ref"))
			if lookupStatus != http.StatusOK {
				w.WriteHeader(lookupStatus)
				_, _ = w.Write([]byte(`{"message":"Not Found"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"type": "file", "name": "status.json", "path": "status.json", "sha": existingSHA,
			})
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			_ = json.Unmarshal(body, captured)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"content":{"name":"status.json"},"commit":{"sha":"c1"}}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newGitHubRepo(t *testing.T, baseURL string) *GitHubStatusRepository {
	t.Helper()
	repo, err := NewGitHubStatusRepository(GitHubStatusConfig{
		Token:    "secret",
		Owner:    "acme",
		Repo:     "rooms",
		FilePath: "status.json",
		BaseURL:  baseURL,
	}, nil, nil)
	require.NoError(t, err)
	return repo
}

func TestGitHubStatusRepositoryUpdatesExistingFile(t *testing.T) {
	srv, captured := newGitHubServer(t, "abc123", http.StatusOK)
	repo := newGitHubRepo(t, srv.URL)

	require.NoError(t, repo.Publish(context.Background(), models.StatusReport{}, samplePayload))

	require.NotNil(t, captured.SHA)
	assert.Equal(t, "abc123", *captured.SHA)
	assert.Equal(t, "main", captured.Branch)
	assert.Equal(t, "Update classroom status data", captured.Message)
	decoded, err := base64.StdEncoding.DecodeString(captured.Content)
	require.NoError(t, err)
	assert.Equal(t, samplePayload, decoded)
}

func TestGitHubStatusRepositoryCreatesMissingFile(t *testing.T) {
	srv, captured := newGitHubServer(t, "", http.StatusNotFound)
	repo := newGitHubRepo(t, srv.URL)

	require.NoError(t, repo.Publish(context.Background(), models.StatusReport{}, samplePayload))
	assert.Nil(t, captured.SHA)
	assert.NotEmpty(t, captured.Content)
}

func TestGitHubStatusRepositoryIgnoresLookupFailure(t *testing.T) {
	srv, captured := newGitHubServer(t, "", http.StatusInternalServerError)
	repo := newGitHubRepo(t, srv.URL)

	require.NoError(t, repo.Publish(context.Background(), models.StatusReport{}, samplePayload))
	assert.Nil(t, captured.SHA)
}

type fakeKafkaWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeKafkaWriter) Close() error { return nil }

func TestKafkaStatusRepositoryPublish(t *testing.T) {
	writer := &fakeKafkaWriter{}
	repo := &KafkaStatusRepository{writer: writer, roomID: "R3-301"}

	require.NoError(t, repo.Publish(context.Background(), models.StatusReport{}, samplePayload))
	require.Len(t, writer.msgs, 1)
	assert.Equal(t, []byte("R3-301"), writer.msgs[0].Key)
	assert.Equal(t, samplePayload, writer.msgs[0].Value)

	writer.err = errors.New("leader not available")
	assert.Error(t, repo.Publish(context.Background(), models.StatusReport{}, samplePayload))
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMQTTClient struct {
	mqtt.Client
	topic    string
	qos      byte
	retained bool
	payload  []byte
	err      error
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic, c.qos, c.retained = topic, qos, retained
	c.payload, _ = payload.([]byte)
	return newFakeToken(c.err)
}

func TestMQTTStatusRepositoryPublishesRetained(t *testing.T) {
	client := &fakeMQTTClient{}
	repo := NewMQTTStatusRepositoryWithClient(client, "rooms/status", 1)

	require.NoError(t, repo.Publish(context.Background(), models.StatusReport{}, samplePayload))
	assert.Equal(t, "rooms/status", client.topic)
	assert.Equal(t, byte(1), client.qos)
	assert.True(t, client.retained)
	assert.Equal(t, samplePayload, client.payload)

	client.err = errors.New("not connected")
	assert.Error(t, repo.Publish(context.Background(), models.StatusReport{}, samplePayload))
}
