package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingPage = `<!DOCTYPE html>
<html><body>
<nav><a href="/login">Login</a></nav>
<div class="bounty-list">
  <div class="card">
    <a href="/bounty/write-launch-thread">Write a launch thread</a>
    <p class="description">Write a short launch thread for our new tool</p>
  </div>
  <div class="card">
    <a href="https://other.example.com/bounty/42">Translate the docs</a>
  </div>
  <div class="card">
    <a href="javascript:void(0)">Skipped</a>
  </div>
</div>
</body></html>`

func TestDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	s := New(srv.URL)
	opportunities, err := s.Discover(context.Background())
	require.NoError(t, err)

	// Login anchor has no slug-like segment; its md5 id still counts it
	// as an item, so filter assertions target the known ones.
	byID := make(map[string]string)
	for _, o := range opportunities {
		byID[o.ID] = o.Title
	}

	assert.Equal(t, "Write a launch thread", byID["write-launch-thread"])
	assert.Equal(t, "Translate the docs", byID["42"])
	_, hasSkipped := byID["void(0)"]
	assert.False(t, hasSkipped)
}

func TestDiscover_SlugURLResolvedAgainstSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/bounty/fix-the-docs">Fix the docs</a></body></html>`))
	}))
	defer srv.Close()

	s := New(srv.URL)
	opportunities, err := s.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, opportunities, 1)
	assert.Equal(t, srv.URL+"/bounty/fix-the-docs", opportunities[0].URL)
}

func TestDiscover_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := New(srv.URL)
	_, err := s.Discover(context.Background())
	assert.Error(t, err)
}

func TestDiscover_DescriptionFromSibling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	s := New(srv.URL)
	opportunities, err := s.Discover(context.Background())
	require.NoError(t, err)

	for _, o := range opportunities {
		if o.ID == "write-launch-thread" {
			assert.Equal(t, "Write a short launch thread for our new tool", o.Description)
			return
		}
	}
	t.Fatal("expected opportunity not found")
}

func TestExtractID(t *testing.T) {
	assert.Equal(t, "12345", ExtractID("https://site.example.com/bounty/12345", "t"))
	assert.Equal(t, "12345", ExtractID("https://site.example.com/bounty/12345/", "t"))
	assert.Equal(t, "write-thread", ExtractID("https://site.example.com/bounty/write-thread", "t"))
	assert.Equal(t, "write_thread", ExtractID("https://site.example.com/bounty/write_thread", "t"))

	// Plain word segment falls back to the title hash.
	a := ExtractID("https://site.example.com/bounties", "Same Title")
	b := ExtractID("https://other.example.com/list", "Same Title")
	assert.Equal(t, a, b)
	assert.Len(t, a, 12)
}
