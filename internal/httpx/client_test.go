package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

func newTestClient() *Client {
	return NewClient(ClientDependencies{Logger: zerolog.Nop()})
}

func TestGetDecodesJSONObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"42","ok":true}`))
	}))
	defer server.Close()

	result, err := newTestClient().Get(context.Background(), server.URL, map[string]string{"Authorization": "Bearer tok"})
	require.NoError(t, err)
	assert.Equal(t, "42", result["id"])
	assert.Equal(t, true, result["ok"])
}

func TestGetWrapsJSONArrayUnderData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1},{"id":2}]`))
	}))
	defer server.Close()

	result, err := newTestClient().Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	items, ok := result["data"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestPostSendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["text"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"created":true}`))
	}))
	defer server.Close()

	result, err := newTestClient().Post(context.Background(), server.URL, map[string]any{"text": "hello"}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, result["created"])
}

func TestPostFormEncodesValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15550001111", r.Form.Get("To"))
		w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer server.Close()

	form := url.Values{}
	form.Set("To", "+15550001111")

	result, err := newTestClient().PostForm(context.Background(), server.URL, form, nil)
	require.NoError(t, err)
	assert.Equal(t, "SM1", result["sid"])
}

func TestNonSuccessStatusIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"Missing Access"}`))
	}))
	defer server.Close()

	_, err := newTestClient().ForService("discord").Get(context.Background(), server.URL, nil)

	var providerErr *domain.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, "discord", providerErr.Service)
	assert.Equal(t, http.StatusForbidden, providerErr.StatusCode)
	assert.Contains(t, providerErr.Body, "Missing Access", "upstream body survives verbatim")
}

func TestEmptyResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	result, err := newTestClient().Delete(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestNonJSONResponseComesBackRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	result, err := newTestClient().Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "OK", result["raw"])
}

func TestTransportErrorIsProviderError(t *testing.T) {
	_, err := newTestClient().ForService("stripe").Get(context.Background(), "http://127.0.0.1:1", nil)

	var providerErr *domain.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, "stripe", providerErr.Service)
	assert.Zero(t, providerErr.StatusCode)
}
