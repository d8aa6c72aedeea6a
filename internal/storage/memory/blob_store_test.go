package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObject(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	url, err := store.PutObject(context.Background(), "cars/a.jpg", "image/jpeg", strings.NewReader("payload"))
	require.NoError(t, err)
	require.Equal(t, "memory://cars/a.jpg", url)
	require.Equal(t, 1, store.Len())

	data, contentType, ok := store.Object("cars/a.jpg")
	require.True(t, ok)
	require.Equal(t, "payload", string(data))
	require.Equal(t, "image/jpeg", contentType)

	_, _, ok = store.Object("missing")
	require.False(t, ok)
}
