package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	var lastAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"name":"Alice"}`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"User not found"}`))
		case "/invalid":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"errors":{"name":["Name is required"]}}`))
		case "/gone":
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	c := New(server.URL, "token-123")
	ctx := context.Background()

	t.Run("sends the bearer token", func(t *testing.T) {
		var out map[string]string
		require.NoError(t, c.GetJSON(ctx, "/ok", &out))
		assert.Equal(t, "Bearer token-123", lastAuth)
		assert.Equal(t, "Alice", out["name"])
	})

	t.Run("decodes error payloads", func(t *testing.T) {
		err := c.GetJSON(ctx, "/missing", nil)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "User not found")
	})

	t.Run("carries field errors on 400", func(t *testing.T) {
		err := c.PostJSON(ctx, "/invalid", map[string]string{"name": ""}, nil)
		require.Error(t, err)

		apiErr, ok := err.(*APIError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Equal(t, []string{"Name is required"}, apiErr.Fields["name"])
	})

	t.Run("delete accepts no content", func(t *testing.T) {
		require.NoError(t, c.Delete(ctx, "/gone"))
	})
}
