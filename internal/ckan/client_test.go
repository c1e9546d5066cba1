package ckan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/ckanbulk/internal/auth"
	"github.com/rpattn/ckanbulk/internal/domain"
	"github.com/rpattn/ckanbulk/internal/search"
)

func TestNewClientValidatesURL(t *testing.T) {
	_, err := NewClient("ftp://example.org")
	assert.Error(t, err)

	_, err = NewClient("https://")
	assert.Error(t, err)

	client, err := NewClient("https://demo.ckan.org/", WithTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
}

func TestSearchSendsPackageSearchPayload(t *testing.T) {
	var received searchPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/data/api/3/action/package_search", r.URL.Path)
		assert.Equal(t, "secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"result":{"count":2,"results":[{"id":"a","name":"first"},{"id":"b","name":"second"}]}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/data", WithAPIToken("secret-token"))
	require.NoError(t, err)

	resp, err := client.Search(context.Background(), search.Request{
		Query:          `type:"dataset" AND (author:"Alex")`,
		Rows:           1000,
		Start:          0,
		IncludePrivate: true,
		IncludeDrafts:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, `type:"dataset" AND (author:"Alex")`, received.Q)
	assert.Equal(t, 1000, received.Rows)
	assert.True(t, received.IncludePrivate)
	assert.True(t, received.IncludeDrafts)

	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "b", resp.Results[1].ID())
	assert.Equal(t, []string{"id", "name"}, resp.Results[0].Keys())
}

func TestCallerTokenOverridesConfiguredToken(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"result":{"id":"a"}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, WithAPIToken("service-token"))
	require.NoError(t, err)

	_, err = client.Show(context.Background(), ActionPackageShow, "a")
	require.NoError(t, err)
	_, err = client.Show(auth.ContextWithAPIToken(context.Background(), "user-token"), ActionPackageShow, "a")
	require.NoError(t, err)

	assert.Equal(t, []string{"service-token", "user-token"}, got)
}

func TestAnonymousCallerFallbackIsOptIn(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"result":{"id":"a"}}`))
	}))
	defer server.Close()

	anonymous := auth.ContextWithAPIToken(context.Background(), "")

	strict, err := NewClient(server.URL, WithAPIToken("service-token"))
	require.NoError(t, err)
	_, err = strict.Show(anonymous, ActionPackageShow, "a")
	require.NoError(t, err)

	lenient, err := NewClient(server.URL, WithAPIToken("service-token"), WithAnonymousFallback(true))
	require.NoError(t, err)
	_, err = lenient.Show(anonymous, ActionPackageShow, "a")
	require.NoError(t, err)

	assert.Equal(t, []string{"", "service-token"}, got)
}

type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return http.DefaultTransport.RoundTrip(req)
}

func TestWithHTTPClientKeepsCallerClientUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"result":{"id":"a"}}`))
	}))
	defer server.Close()

	transport := &countingTransport{}
	custom := &http.Client{Transport: transport}
	client, err := NewClient(server.URL, WithHTTPClient(custom), WithTimeout(3*time.Second))
	require.NoError(t, err)

	_, err = client.Show(context.Background(), ActionPackageShow, "a")
	require.NoError(t, err)

	assert.Equal(t, int32(1), transport.calls.Load())
	assert.Equal(t, 3*time.Second, client.httpClient.Timeout)
	assert.Zero(t, custom.Timeout)
}

func TestCallMapsActionErrorsToBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"error":{"__type":"Search Query Error","message":"Search error: invalid syntax"}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.Search(context.Background(), search.Request{Query: "((", Rows: 1})
	require.Error(t, err)

	var backendErr *domain.BackendError
	require.True(t, errors.As(err, &backendErr))
	assert.Equal(t, ActionPackageSearch, backendErr.Op)
	assert.Equal(t, http.StatusConflict, backendErr.StatusCode)
	assert.Contains(t, backendErr.Error(), "invalid syntax")
}

func TestCallHandlesNonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.Show(context.Background(), ActionPackageShow, "x")
	var backendErr *domain.BackendError
	require.True(t, errors.As(err, &backendErr))
	assert.Equal(t, http.StatusBadGateway, backendErr.StatusCode)
	assert.Contains(t, err.Error(), "bad gateway")
}

func TestShowDecodesRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/3/action/package_show", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "abc", payload["id"])
		_, _ = w.Write([]byte(`{"success":true,"result":{"id":"abc","organization":{"name":"org"}}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	record, err := client.Show(context.Background(), ActionPackageShow, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", record.ID())
	org, ok := record.Get("organization")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"name": "org"}, org)
}

func TestRateLimitRespectsContext(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"success":true,"result":{"count":0,"results":[]}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, WithRateLimit(0.001, 1))
	require.NoError(t, err)

	_, err = client.Search(context.Background(), search.Request{Rows: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Search(ctx, search.Request{Rows: 1})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientDrivesFetchAll(t *testing.T) {
	const total = 7
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload searchPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		results := make([]map[string]any, 0)
		for i := payload.Start; i < total && i < payload.Start+payload.Rows; i++ {
			results = append(results, map[string]any{"id": string(rune('a' + i))})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result":  map[string]any{"count": total, "results": results},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	records, err := search.FetchAll(context.Background(), client, "q", search.WithPageSize(3))
	require.NoError(t, err)
	require.Len(t, records, total)
	assert.Equal(t, "g", records[6].ID())
}
