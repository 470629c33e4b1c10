package dataapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, zap.NewNop())
}

func writeJSONBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

var session = Session{SessionToken: "sess", TraceToken: "trace"}

func TestSummaryV1(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/v1/summary/abc", r.URL.Path)
		assert.Equal(t, "sess", r.Header.Get(HeaderSessionToken))
		assert.Equal(t, "trace", r.Header.Get(HeaderTraceToken))
		writeJSONBody(w, http.StatusOK, `{"userId":"abc","rangeStart":"a","rangeEnd":"b","computeDays":14,"numBgValues":10,"percentTimeInRange":70,"percentTimeBelowRange":2}`)
	})

	s, err := c.SummaryV1(context.Background(), session, "abc")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 14, s.ComputeDays)
	assert.InDelta(t, 70, s.PercentTimeInRange, 1e-9)
}

func TestSummaryV1_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, http.StatusNotFound, `{"status":404}`)
	})
	s, err := c.SummaryV1(context.Background(), session, "abc")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSummaryV1_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, http.StatusServiceUnavailable, `{}`)
	})
	_, err := c.SummaryV1(context.Background(), session, "abc")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Equal(t, "error-http-500", MessageKey(err))
}

func TestDataRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/v1/range/abc":
			writeJSONBody(w, http.StatusOK, `["2023-01-01T00:00:00Z","2023-01-10T00:00:00Z"]`)
		case "/data/v1/range/bad":
			writeJSONBody(w, http.StatusOK, `["2023-01-01T00:00:00Z"]`)
		default:
			writeJSONBody(w, http.StatusNotFound, `{}`)
		}
	})
	ctx := context.Background()

	rng, err := c.DataRange(ctx, session, "abc")
	require.NoError(t, err)
	assert.Equal(t, "2023-01-10T00:00:00Z", rng.End)

	rng, err = c.DataRange(ctx, session, "none")
	require.NoError(t, err)
	assert.Nil(t, rng)

	_, err = c.DataRange(ctx, session, "bad")
	assert.Error(t, err)
}

func TestTIR(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/compute/tir", r.URL.Path)
		assert.Equal(t, "2023-01-09T00:00:00Z", r.URL.Query().Get("startDate"))
		if r.URL.Query().Get("userIds") == "empty" {
			writeJSONBody(w, http.StatusOK, `[]`)
			return
		}
		writeJSONBody(w, http.StatusOK, `[{"userId":"abc","count":{"veryLow":1,"low":1,"target":8,"high":0,"veryHigh":0}}]`)
	})
	ctx := context.Background()

	count, err := c.TIR(ctx, session, "abc", "2023-01-09T00:00:00Z", "2023-01-10T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 8, count.Target)
	assert.Equal(t, 10, count.Total())

	_, err = c.TIR(ctx, session, "empty", "2023-01-09T00:00:00Z", "2023-01-10T00:00:00Z")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageKey(t *testing.T) {
	assert.Equal(t, "error-http-500", MessageKey(&StatusError{Status: 500}))
	assert.Equal(t, "error-http-40x", MessageKey(&StatusError{Status: 403}))
	assert.Equal(t, "error-http-40x", MessageKey(errors.New("boom")))
}

func TestDataRange_ConnectionFailureIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())

	_, err := c.DataRange(context.Background(), session, "abc")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewClient_LogsThroughZap(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := NewClient("http://localhost", time.Second, zap.New(core))

	hook := func(*resty.Client, *http.Request) error { return nil }
	c.http.SetPreRequestHook(hook)
	c.http.SetPreRequestHook(hook)

	assert.Equal(t, 1, logs.FilterMessageSnippet("Overwriting an existing pre-request hook").Len())
}
