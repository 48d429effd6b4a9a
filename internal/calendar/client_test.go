package calendar_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncarvajal/casita/backend/internal/calendar"
)

func TestClient_Fetch(t *testing.T) {
	base := time.Now().AddDate(0, 1, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(feedFixture(base)))
	}))
	defer srv.Close()

	c := calendar.NewClient(srv.Client(), srv.URL, time.UTC)
	events, err := c.Fetch(context.Background())

	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestClient_Fetch_RetriesTransientFailure(t *testing.T) {
	base := time.Now().AddDate(0, 1, 0)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(feedFixture(base)))
	}))
	defer srv.Close()

	c := calendar.NewClient(srv.Client(), srv.URL, time.UTC)
	events, err := c.Fetch(context.Background())

	require.NoError(t, err)
	assert.Len(t, events, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Fetch_ExhaustedRetriesReturnFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := calendar.NewClient(srv.Client(), srv.URL, time.UTC)
	_, err := c.Fetch(context.Background())

	var ferr *calendar.FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, srv.URL, ferr.URL)
}

func TestClient_Fetch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := calendar.NewClient(srv.Client(), srv.URL, time.UTC)
	_, err := c.Fetch(context.Background())

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "a 404 will not fix itself; no retries")
}
