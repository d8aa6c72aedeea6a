package asset

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	collyfetcher "github.com/SashaDiz/autoved-sub000/internal/fetcher/colly"
	"github.com/SashaDiz/autoved-sub000/internal/id/ulid"
	"github.com/SashaDiz/autoved-sub000/internal/storage/memory"
	"github.com/SashaDiz/autoved-sub000/internal/telegram"
)

type botAPI struct {
	getFileCalls  atomic.Int32
	downloadCalls atomic.Int32
	getFileStatus int
	fileStatus    int
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/getFile"):
		b.getFileCalls.Add(1)
		if b.getFileStatus != 0 {
			w.WriteHeader(b.getFileStatus)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: wrong file_id"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"file_id":"` + r.URL.Query().Get("file_id") + `","file_path":"photos/file_1.jpg"}}`))
	case strings.HasPrefix(r.URL.Path, "/file/bot"):
		b.downloadCalls.Add(1)
		if b.fileStatus != 0 {
			w.WriteHeader(b.fileStatus)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	default:
		http.NotFound(w, r)
	}
}

func newRetriever(t *testing.T, api *botAPI) (*Retriever, *memory.BlobStore) {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := telegram.NewClient(telegram.Config{Token: "123:abc", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)
	blobs := memory.NewBlobStore()
	r, err := New(client, collyfetcher.New(collyfetcher.Config{}), blobs, ulid.NewKeyGenerator("cars", ".jpg"),
		Config{DefaultImageURL: "https://autoved.example/placeholder.jpg"})
	require.NoError(t, err)
	return r, blobs
}

func TestRetrieveWithoutReferenceMakesNoCalls(t *testing.T) {
	t.Parallel()

	api := &botAPI{}
	r, blobs := newRetriever(t, api)

	url, err := r.Retrieve(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "https://autoved.example/placeholder.jpg", url)
	require.Zero(t, api.getFileCalls.Load())
	require.Zero(t, api.downloadCalls.Load())
	require.Zero(t, blobs.Len())
}

func TestRetrieveRehostsPhoto(t *testing.T) {
	t.Parallel()

	api := &botAPI{}
	r, blobs := newRetriever(t, api)

	url, err := r.Retrieve(context.Background(), "AgACAgIAAx")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "memory://cars/"), url)
	require.True(t, strings.HasSuffix(url, ".jpg"), url)
	require.EqualValues(t, 1, api.getFileCalls.Load())
	require.EqualValues(t, 1, api.downloadCalls.Load())

	data, contentType, ok := blobs.Object(strings.TrimPrefix(url, "memory://"))
	require.True(t, ok)
	require.Equal(t, "jpeg-bytes", string(data))
	require.Equal(t, DefaultContentType, contentType)
}

func TestRetrieveMetadataFailure(t *testing.T) {
	t.Parallel()

	api := &botAPI{getFileStatus: http.StatusBadRequest}
	r, blobs := newRetriever(t, api)

	_, err := r.Retrieve(context.Background(), "broken")
	require.ErrorIs(t, err, ErrRetrieval)
	require.ErrorIs(t, err, telegram.ErrAPI)
	require.Zero(t, api.downloadCalls.Load())
	require.Zero(t, blobs.Len())
}

func TestRetrieveDownloadFailure(t *testing.T) {
	t.Parallel()

	api := &botAPI{fileStatus: http.StatusNotFound}
	r, blobs := newRetriever(t, api)

	_, err := r.Retrieve(context.Background(), "gone")
	require.ErrorIs(t, err, ErrRetrieval)
	require.EqualValues(t, 1, api.downloadCalls.Load())
	require.Zero(t, blobs.Len())
}

type failingBlobs struct{}

func (failingBlobs) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestRetrieveStoreFailure(t *testing.T) {
	t.Parallel()

	api := &botAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	client, err := telegram.NewClient(telegram.Config{Token: "t", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	r, err := New(client, collyfetcher.New(collyfetcher.Config{}), failingBlobs{}, ulid.NewKeyGenerator("cars", ".jpg"), Config{})
	require.NoError(t, err)
	require.Equal(t, DefaultImageURL, r.DefaultURL())

	_, err = r.Retrieve(context.Background(), "ok")
	require.ErrorIs(t, err, ErrRetrieval)
	require.Contains(t, err.Error(), "bucket unavailable")
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil, nil, nil, Config{})
	require.Error(t, err)
}
