package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientGetFileResolvesPath(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/botTOKEN/getFile", r.URL.Path)
		require.Equal(t, "photo-123", r.URL.Query().Get("file_id"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"file_id":"photo-123","file_path":"photos/file_7.jpg"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{Token: "TOKEN", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	file, err := client.GetFile(context.Background(), "photo-123")
	require.NoError(t, err)
	require.Equal(t, "photos/file_7.jpg", file.FilePath)
	require.Equal(t, srv.URL+"/file/botTOKEN/photos/file_7.jpg", client.FileURL(file.FilePath))
}

func TestClientGetFileNonSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: invalid file_id"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{Token: "TOKEN", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = client.GetFile(context.Background(), "missing")
	require.ErrorIs(t, err, ErrAPI)
	require.Contains(t, err.Error(), "invalid file_id")
}

func TestClientGetFileOKFalse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"nope"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{Token: "TOKEN", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = client.GetFile(context.Background(), "id")
	require.ErrorIs(t, err, ErrAPI)
}

func TestClientSendMessage(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{Token: "TOKEN", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	require.NoError(t, client.SendMessage(context.Background(), "-100500", "hello"))
	require.Equal(t, "-100500", got["chat_id"])
	require.Equal(t, "hello", got["text"])
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
}

func TestMessageHelpers(t *testing.T) {
	t.Parallel()

	msg := Message{
		Text:    "text",
		Caption: "caption",
		Photo: []PhotoSize{
			{FileID: "small", Width: 90},
			{FileID: "large", Width: 1280},
		},
	}
	require.Equal(t, "text\ncaption", msg.Body())
	require.True(t, msg.HasPhoto())
	largest, ok := msg.LargestPhoto()
	require.True(t, ok)
	require.Equal(t, "large", largest.FileID)

	empty := Message{Caption: "only caption"}
	require.Equal(t, "only caption", empty.Body())
	_, ok = empty.LargestPhoto()
	require.False(t, ok)
}

func TestClientRedactsTokenFromTransportErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := NewClient(Config{Token: "123:SECRET", BaseURL: base}, nil)
	require.NoError(t, err)

	_, err = client.GetFile(context.Background(), "photo-1")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "SECRET")
	require.Contains(t, err.Error(), "<token>")
}
