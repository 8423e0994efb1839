package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-service/ddd/domain/gateway"
)

// fakeS3 只接受 PUT 对象请求
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.objects[r.URL.Path] = string(body)
	f.types[r.URL.Path] = r.Header.Get("Content-Type")
	f.mu.Unlock()
	w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	w.WriteHeader(http.StatusOK)
}

func TestMinioUploadObjects(t *testing.T) {
	s3 := &fakeS3{objects: map[string]string{}, types: map[string]string{}}
	srv := httptest.NewServer(s3)
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Secure: false,
		Region: "us-east-1",
	})
	require.NoError(t, err)

	dir := t.TempDir()
	playlist := filepath.Join(dir, "playlist.m3u8")
	require.NoError(t, os.WriteFile(playlist, []byte("#EXTM3U"), 0o644))

	pub := NewMinioStorage(client, "media")
	err = pub.UploadObjects(context.Background(), []gateway.UploadObject{
		{LocalPath: playlist, ObjectKey: "/media/videos/x/playlist.m3u8"},
	})
	require.NoError(t, err)

	require.Contains(t, s3.objects, "/media/media/videos/x/playlist.m3u8")
	assert.Contains(t, s3.objects["/media/media/videos/x/playlist.m3u8"], "#EXTM3U")
	assert.Equal(t, "application/vnd.apple.mpegurl", s3.types["/media/media/videos/x/playlist.m3u8"])
}

func TestMinioUploadMissingFile(t *testing.T) {
	pub := NewMinioStorage(&minio.Client{}, "media")
	err := pub.UploadObjects(context.Background(), []gateway.UploadObject{{LocalPath: "/no/such/file"}})
	assert.Error(t, err)
	assert.NoError(t, NewMinioStorage(nil, "media").UploadObjects(context.Background(), nil))
}
