package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeClassifiesStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gone":
			w.WriteHeader(http.StatusGone)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/blocked":
			w.WriteHeader(http.StatusForbidden)
		default:
			_, _ = w.Write([]byte("<html></html>"))
		}
	}))
	defer srv.Close()

	p := New(Config{UserAgent: "probe-test", Timeout: time.Second})
	ctx := context.Background()

	require.NoError(t, p.Probe(ctx, srv.URL+"/watch"))
	require.NoError(t, p.Probe(ctx, srv.URL+"/watch"), "revisits are allowed")
	require.NoError(t, p.Probe(ctx, srv.URL+"/blocked"))
	require.ErrorIs(t, p.Probe(ctx, srv.URL+"/missing"), ErrNotFound)
	require.ErrorIs(t, p.Probe(ctx, srv.URL+"/gone"), ErrNotFound)
}

func TestProbeUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	err := New(Config{Timeout: time.Second}).Probe(context.Background(), addr+"/x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestProbeCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := New(Config{Timeout: 5 * time.Second}).Probe(ctx, srv.URL)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConfigureHooksRecordsOutcome(t *testing.T) {
	t.Parallel()

	p := New(Config{})
	hooks := &stubHooks{}
	var out outcome
	p.configureHooks(hooks, &out)

	hooks.onResponse(&colly.Response{StatusCode: http.StatusOK})
	assert.Equal(t, http.StatusOK, out.status)

	hooks.onError(&colly.Response{StatusCode: http.StatusNotFound}, errors.New("Not Found"))
	assert.Equal(t, http.StatusNotFound, out.status)
	require.Error(t, out.err)

	hooks.onError(nil, errors.New("dial tcp: connection refused"))
	assert.Equal(t, http.StatusNotFound, out.status)
}

func TestClassifyIndeterminate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, classify(outcome{}, errIndeterminate))
	assert.Error(t, classify(outcome{}, errors.New("no such host")))
	assert.NoError(t, classify(outcome{status: http.StatusTooManyRequests}, errors.New("Too Many Requests")))
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) { s.onResponse = cb }

func (s *stubHooks) OnError(cb colly.ErrorCallback) { s.onError = cb }
