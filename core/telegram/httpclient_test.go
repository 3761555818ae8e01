package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRetryTransportRetriesDialFailures(t *testing.T) {
	calls := 0
	rt := &retryTransport{
		base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
			}
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "chat_id=1", string(body))
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
		}),
		maxRetries: 2,
		backoff:    time.Millisecond,
	}

	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", strings.NewReader("chat_id=1"))
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, calls)
}

func TestRetryTransportStopsOnFinalErrors(t *testing.T) {
	calls := 0
	boom := errors.New("tls: bad certificate")
	rt := &retryTransport{
		base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, boom
		}),
		maxRetries: 3,
		backoff:    time.Millisecond,
	}
	req, err := http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryTransportGivesUpWithoutRewindableBody(t *testing.T) {
	calls := 0
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
	rt := &retryTransport{
		base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, dialErr
		}),
		maxRetries: 3,
		backoff:    time.Millisecond,
	}
	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", io.NopCloser(strings.NewReader("x")))
	require.NoError(t, err)
	req.GetBody = nil

	_, err = rt.RoundTrip(req)
	require.ErrorIs(t, err, dialErr)
	assert.Equal(t, 1, calls)
}

func TestBuildHTTPClientOutlastsLongPoll(t *testing.T) {
	c := BuildHTTPClient(HTTPClientOptions{LongPoll: 25 * time.Second})
	rt, ok := c.Transport.(*retryTransport)
	require.True(t, ok)
	tr, ok := rt.base.(*http.Transport)
	require.True(t, ok)

	assert.Greater(t, tr.ResponseHeaderTimeout, 25*time.Second)
	assert.Greater(t, c.Timeout, tr.ResponseHeaderTimeout)
	assert.Equal(t, defaultRetryAttempts, rt.maxRetries)
}
