package remote_test

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ffarchive/core/remote"
)

func serve(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		http.ServeContent(w, r, "main.zzz", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSourceReadAt(t *testing.T) {
	t.Parallel()

	data := []byte("hello world")
	server := serve(t, data)

	src, err := remote.NewSource(context.Background(), server.URL, remote.WithConditionalReads())
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), src.Size())
	assert.Contains(t, src.SourceID(), `etag:"v1"`)

	tests := []struct {
		name    string
		bufSize int
		offset  int64
		wantN   int
		wantErr error
		want    string
	}{
		{name: "read from middle", bufSize: 5, offset: 6, wantN: 5, want: "world"},
		{name: "read past end returns EOF", bufSize: 10, offset: int64(len(data) - 3), wantN: 3, wantErr: io.EOF, want: "rld"},
		{name: "read at end", bufSize: 1, offset: int64(len(data)), wantN: 0, wantErr: io.EOF, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := make([]byte, tt.bufSize)
			n, err := src.ReadAt(buf, tt.offset)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantN, n)
			assert.Equal(t, tt.want, string(buf[:n]))
		})
	}
}

func TestSourceReadRange(t *testing.T) {
	t.Parallel()

	server := serve(t, []byte("0123456789"))
	src, err := remote.NewSource(context.Background(), server.URL)
	require.NoError(t, err)

	rc, err := src.ReadRange(2, 100)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "23456789", string(got))

	_, err = src.ReadRange(-1, 1)
	require.Error(t, err)
	_, err = src.ReadRange(10, 1)
	require.ErrorIs(t, err, io.EOF)
}

func TestNewSourceRangeUnsupported(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("no ranges here"))
	}))
	t.Cleanup(server.Close)

	_, err := remote.NewSource(context.Background(), server.URL)
	require.ErrorIs(t, err, remote.ErrRangeUnsupported)
}

func TestSourceConditionalReadDetectsChange(t *testing.T) {
	t.Parallel()

	var version atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		etag := `"v1"`
		if version.Load() > 0 {
			etag = `"v2"`
		}
		w.Header().Set("ETag", etag)
		if m := r.Header.Get("If-Match"); m != "" && m != etag {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		http.ServeContent(w, r, "main.zzz", time.Time{}, bytes.NewReader([]byte("payload")))
	}))
	t.Cleanup(server.Close)

	src, err := remote.NewSource(context.Background(), server.URL, remote.WithConditionalReads())
	require.NoError(t, err)

	buf := make([]byte, 3)
	_, err = src.ReadAt(buf, 0)
	require.NoError(t, err)

	version.Store(1)
	_, err = src.ReadAt(buf, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "changed")
}

func TestSourceSendsHeaders(t *testing.T) {
	t.Parallel()

	var sawToken atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer token" {
			sawToken.Store(true)
		}
		http.ServeContent(w, r, "x", time.Time{}, bytes.NewReader([]byte("abc")))
	}))
	t.Cleanup(server.Close)

	_, err := remote.NewSource(context.Background(), server.URL, remote.WithHeader("Authorization", "Bearer token"))
	require.NoError(t, err)
	assert.True(t, sawToken.Load())
}

func TestNewSourceNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	_, err := remote.NewSource(context.Background(), server.URL+"/other.zzz")
	require.ErrorIs(t, err, fs.ErrNotExist)
}
