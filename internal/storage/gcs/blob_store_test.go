package gcs

import (
	"context"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = New(client, Config{Bucket: " "})
	require.Error(t, err)

	store, err := New(client, Config{Bucket: "artifacts", Prefix: "/debug/"})
	require.NoError(t, err)
	assert.Equal(t, "debug/youtube/x.png", store.ObjectName("youtube/x.png"))

	bare, err := New(client, Config{Bucket: "artifacts"})
	require.NoError(t, err)
	assert.Equal(t, "youtube/x.png", bare.ObjectName("youtube/x.png"))
}
