package shorten

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortenSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "simple", r.URL.Query().Get("format"))
		assert.Equal(t, "https://frag.example/#abc", r.URL.Query().Get("url"))
		w.Write([]byte("https://sho.rt/x1\n"))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	short, err := c.Shorten(context.Background(), "https://frag.example/#abc")
	require.NoError(t, err)
	assert.Equal(t, "https://sho.rt/x1", short)
}

func TestShortenNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Shorten(context.Background(), "https://frag.example/#abc")
	assert.True(t, errors.Is(err, ErrUnavailable), "want ErrUnavailable, got %v", err)
}

func TestShortenGarbageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ERROR: no"))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Shorten(context.Background(), "https://frag.example/#abc")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestShortenNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Shorten(context.Background(), "https://frag.example/#abc")
	assert.True(t, errors.Is(err, ErrUnavailable))
}
