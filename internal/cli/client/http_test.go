package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_Get_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/stats", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"collections": []any{}}})
	}))
	defer srv.Close()

	api := &APIClient{baseURL: srv.URL, httpClient: srv.Client()}

	resp, err := api.Get("/stats")
	require.NoError(t, err)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Error)
}

func TestAPIClient_Post_SendsJSONBody(t *testing.T) {
	var received AskRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"answer": "ok"}})
	}))
	defer srv.Close()

	api := &APIClient{baseURL: srv.URL, httpClient: srv.Client()}

	_, err := api.Post("/query", AskRequest{Query: "change of control", TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, "change of control", received.Query)
	assert.Equal(t, 2, received.TopK)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "query must not be empty"})
	}))
	defer srv.Close()

	api := &APIClient{baseURL: srv.URL, httpClient: srv.Client()}

	_, err := api.Post("/query", AskRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "query must not be empty", apiErr.Message)
}

func TestAPIClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	api := &APIClient{baseURL: srv.URL, httpClient: srv.Client()}

	_, err := api.Get("/stats")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "upstream exploded")
}

func TestNewAPIClientWithCmd_FlagOverridesEnv(t *testing.T) {
	t.Setenv(envAPIURL, "http://from-env:9999")

	cmd := &cobra.Command{}
	cmd.Flags().String("api-url", "", "")
	require.NoError(t, cmd.Flags().Set("api-url", "http://from-flag:1111"))

	api, err := NewAPIClientWithCmd(cmd)
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:1111", api.baseURL)
}

func TestNewAPIClientWithCmd_EnvThenDefault(t *testing.T) {
	t.Setenv(envAPIURL, "http://from-env:9999")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:9999", api.baseURL)

	t.Setenv(envAPIURL, "")
	api, err = NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, api.baseURL)
}
