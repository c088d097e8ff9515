package probe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func noWait(context.Context, time.Duration) error { return nil }

func TestRetryTransportRetriesTLSTimeouts(t *testing.T) {
	t.Parallel()

	calls := 0
	rt := &retryTransport{
		base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("net/http: tls: handshake timeout")
			}
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("")), Request: r}, nil
		}),
		sleep: noWait,
	}
	req, err := http.NewRequest(http.MethodGet, "https://example.com/", nil)
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 3, calls)
}

func TestRetryTransportGivesUpAsIndeterminate(t *testing.T) {
	t.Parallel()

	calls := 0
	rt := &retryTransport{
		base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("tls: handshake timeout")
		}),
		sleep: noWait,
	}
	req, err := http.NewRequest(http.MethodGet, "https://example.com/", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.ErrorIs(t, err, errIndeterminate)
	assert.Equal(t, len(retryBackoff)+1, calls)
}

func TestRetryTransportPassesHardErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	rt := &retryTransport{
		base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("dial tcp: lookup nowhere.invalid: no such host")
		}),
		sleep: noWait,
	}
	req, err := http.NewRequest(http.MethodGet, "https://nowhere.invalid/", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errIndeterminate)
	assert.Equal(t, 1, calls)

	_, err = rt.RoundTrip(nil)
	require.Error(t, err)
}

func TestIsTransientTLSError(t *testing.T) {
	t.Parallel()

	assert.False(t, isTransientTLSError(nil))
	assert.True(t, isTransientTLSError(context.DeadlineExceeded))
	assert.True(t, isTransientTLSError(errors.New("remote error: tls: handshake timeout")))
	assert.False(t, isTransientTLSError(errors.New("connection refused")))
}
