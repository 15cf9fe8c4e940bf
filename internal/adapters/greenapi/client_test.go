package greenapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/adapters/config"
	"hermes/pkg/logger"
	"hermes/pkg/retry"
)

func newTestClient(baseURL string) *Client {
	client := NewClient(config.GreenAPIConfig{
		InstanceID:  "1101",
		APIToken:    "token",
		APIURL:      baseURL,
		Timeout:     5 * time.Second,
		SendsPerSec: 1000,
	}, logger.Get())

	client.policy = retry.Policy{
		MaxAttempts: 3,
		MinBackoff:  time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		Multiplier:  2,
	}
	return client
}

func TestSendMessage_PostsInstanceScopedEndpoint(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.SendMessage(context.Background(), "123@c.us", "hello")
	require.NoError(t, err)

	assert.Equal(t, "/waInstance1101/sendMessage/token", gotPath)
	assert.Equal(t, "123@c.us", gotBody["chatId"])
	assert.Equal(t, "hello", gotBody["message"])
}

func TestSendMessage_RetriesServerErrors(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.SendMessage(context.Background(), "123@c.us", "hello")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSendMessage_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.SendMessage(context.Background(), "123@c.us", "hello")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "400 responses must not be retried")
}

func TestRemoveParticipant_SendsGroupPayload(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.RemoveParticipant(context.Background(), "grp@g.us", "bob@c.us")
	require.NoError(t, err)

	assert.Equal(t, "/waInstance1101/removeGroupParticipant/token", gotPath)
	assert.Equal(t, "grp@g.us", gotBody["groupId"])
	assert.Equal(t, "bob@c.us", gotBody["participantChatId"])
}

func TestSendFile_UploadsMultipart(t *testing.T) {
	var gotChatID, gotCaption, gotFilename string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotChatID = r.FormValue("chatId")
		gotCaption = r.FormValue("caption")
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		gotFilename = header.Filename
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	localPath := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(localPath, []byte("video bytes"), 0o644))

	client := newTestClient(srv.URL)
	err := client.SendFile(context.Background(), "123@c.us", localPath, "720p")
	require.NoError(t, err)

	assert.Equal(t, "123@c.us", gotChatID)
	assert.Equal(t, "720p", gotCaption)
	assert.Equal(t, "clip.mp4", gotFilename)
}

func TestSendFile_MissingFileFailsWithoutRetry(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.SendFile(context.Background(), "123@c.us", "/nonexistent/file.mp4", "")
	require.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
