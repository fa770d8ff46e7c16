package resilience_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbontrack/carbontrack/internal/provider/resilience"
)

func TestRedactURL(t *testing.T) {
	cause := errors.New("connection refused")
	err := resilience.RedactURL(&url.Error{
		Op:  "Get",
		URL: "http://user:pw@api.example.com/feed/Chennai/?token=SECRET#frag",
		Err: cause,
	})

	assert.NotContains(t, err.Error(), "SECRET")
	assert.NotContains(t, err.Error(), "pw")
	assert.Contains(t, err.Error(), "api.example.com/feed/Chennai/")
	assert.ErrorIs(t, err, cause)

	var uerr *url.Error
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "Get", uerr.Op)
}

func TestRedactURL_OtherErrors(t *testing.T) {
	assert.Nil(t, resilience.RedactURL(nil))
	assert.Same(t, assert.AnError, resilience.RedactURL(assert.AnError))
}

func TestClient_TransportErrorHidesQuery(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	dead := server.URL
	server.Close()

	registry := resilience.NewRegistry()
	cfg := resilience.SingleAttemptConfig("waqi", time.Second)
	cfg.Registry = registry
	cfg.CircuitBreaker = neverTrips("waqi")

	_, err := fetch(t, resilience.NewClient(cfg), context.Background(), dead+"/feed/Chennai/?token=SECRET-WAQI")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-WAQI")

	health, ok := registry.Health("waqi")
	require.True(t, ok)
	assert.NotEmpty(t, health.LastError)
	assert.NotContains(t, health.LastError, "SECRET-WAQI")
}
