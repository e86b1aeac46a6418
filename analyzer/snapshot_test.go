package analyzer

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ogPage = `<!DOCTYPE html>
<html><head>
<title>Fallback Title</title>
<meta property="og:title" content=" OG Title ">
<meta property="og:description" content="OG description">
<meta property="og:site_name" content="Example">
<meta property="og:image" content="/img/cover.png">
</head><body>
<h1>Main   heading</h1>
<h2>Second</h2>
<h4>Ignored</h4>
<h3></h3>
</body></html>`

const plainPage = `<html><head>
<title> Plain Title </title>
<meta name="description" content="Plain description">
<link rel="canonical" href="/canonical">
</head><body><h2>Only</h2></body></html>`

// newSnapshotter allows loopback so httptest servers can be fetched
func newSnapshotter() *Snapshotter {
	return NewSnapshotter(SnapshotConfig{Timeout: 5 * time.Second, MaxBytes: 1 << 20, AllowPrivateNetworks: true})
}

func TestSnapshotOpenGraph(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(ogPage))
	}))
	defer server.Close()

	snap, err := newSnapshotter().Snapshot(context.Background(), server.URL+"/page")
	require.NoError(t, err)

	assert.Equal(t, "OG Title", snap.Title)
	assert.Equal(t, "OG description", snap.Description)
	assert.Equal(t, "Example", snap.SiteName)
	assert.Equal(t, server.URL+"/img/cover.png", snap.Image)
	assert.Equal(t, []string{"H1: Main heading", "H2: Second"}, snap.Headings)
}

func TestSnapshotFallsBackToHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(plainPage))
	}))
	defer server.Close()

	snap, err := newSnapshotter().Snapshot(context.Background(), server.URL+"/blog/post")
	require.NoError(t, err)

	assert.Equal(t, "Plain Title", snap.Title)
	assert.Equal(t, "Plain description", snap.Description)
	assert.Equal(t, server.URL+"/canonical", snap.Canonical)
	assert.Empty(t, snap.Image)
	assert.False(t, snap.Empty())
}

func TestSnapshotRejectsErrors(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"not found": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"not html": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF"))
		},
	}
	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			_, err := newSnapshotter().Snapshot(context.Background(), server.URL)
			assert.Error(t, err)
		})
	}
}

func TestSnapshotHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSnapshotter().Snapshot(ctx, server.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveReference(t *testing.T) {
	assert.Equal(t, "https://cdn.example/a.png", resolveReference("https://example.com/x", "https://cdn.example/a.png"))
	assert.Equal(t, "https://example.com/a.png", resolveReference("https://example.com/x/y", "/a.png"))
	assert.Equal(t, "https://example.com/x/a.png", resolveReference("https://example.com/x/y", "a.png"))
	assert.Equal(t, "", resolveReference("https://example.com", ""))
}

func TestPageSnapshotEmpty(t *testing.T) {
	var nilSnap *PageSnapshot
	assert.True(t, nilSnap.Empty())
	assert.True(t, (&PageSnapshot{Headings: []string{}}).Empty())
	assert.False(t, (&PageSnapshot{Image: "x"}).Empty())
}

func TestSnapshotBlocksLoopback(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(plainPage))
	}))
	defer server.Close()

	s := NewSnapshotter(SnapshotConfig{Timeout: 5 * time.Second, MaxBytes: 1 << 20})
	_, err := s.Snapshot(context.Background(), server.URL)

	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestSnapshotBlocksHostnamesResolvingToLoopback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(plainPage))
	}))
	defer server.Close()

	_, port, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)

	s := NewSnapshotter(SnapshotConfig{Timeout: 5 * time.Second, MaxBytes: 1 << 20})
	_, err = s.Snapshot(context.Background(), "http://localhost:"+port+"/admin")
	assert.ErrorIs(t, err, ErrBlockedAddress)
}

func TestPublicOnly(t *testing.T) {
	blocked := []string{
		"127.0.0.1:80", "[::1]:443", "10.1.2.3:80", "172.16.0.9:80", "192.168.1.1:80",
		"169.254.169.254:80", "0.0.0.0:80", "[::]:80", "[fe80::1]:80", "100.64.0.1:80",
		"[::ffff:127.0.0.1]:80", "[fd00::1]:80",
	}
	for _, addr := range blocked {
		assert.ErrorIs(t, publicOnly("tcp4", addr, nil), ErrBlockedAddress, addr)
	}

	for _, addr := range []string{"93.184.216.34:443", "[2606:2800:220:1:248:1893:25c8:1946]:80"} {
		assert.NoError(t, publicOnly("tcp", addr, nil), addr)
	}
}
