package mailer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendImportComplete(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotPayload sgMailPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotPayload))
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	m := New("sg-key", "noreply@example.com")
	m.endpoint = srv.URL

	err := m.SendImportComplete(context.Background(), "reader@example.com", "Goodreads", 12)
	require.NoError(t, err)

	assert.Equal(t, "Bearer sg-key", gotAuth)
	require.Len(t, gotPayload.Personalizations, 1)
	assert.Equal(t, "reader@example.com", gotPayload.Personalizations[0].To[0].Email)
	assert.Equal(t, "noreply@example.com", gotPayload.From.Email)
	require.Len(t, gotPayload.Content, 1)
	assert.Equal(t, "Your import of 12 books from Goodreads is done.", gotPayload.Content[0].Value)
}

func TestSendWithoutAPIKeyIsNoop(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	m := New("", "noreply@example.com")
	m.endpoint = srv.URL

	err := m.Send(context.Background(), "reader@example.com", "hi", "hello")
	require.NoError(t, err)
	assert.False(t, called)
}

func TestSendUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	m := New("bad-key", "noreply@example.com")
	m.endpoint = srv.URL

	err := m.Send(context.Background(), "reader@example.com", "hi", "hello")
	require.Error(t, err)
}
