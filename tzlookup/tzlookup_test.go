package tzlookup_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sidrat/treasury-engine/tzlookup"
)

func geocoderStub(t *testing.T, handler http.HandlerFunc) *tzlookup.Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return tzlookup.NewClient(srv.URL)
}

func TestResolve_Success(t *testing.T) {
	client := geocoderStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "Wilmette", r.URL.Query().Get("name"))
		assert.Equal(t, "1", r.URL.Query().Get("count"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"latitude":42.07,"longitude":-87.72,"timezone":"America/Chicago"}]}`))
	})

	loc, err := client.Resolve(context.Background(), "Wilmette")
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", loc.Timezone)
	assert.InDelta(t, 42.07, loc.Latitude, 0.001)
	assert.InDelta(t, -87.72, loc.Longitude, 0.001)
}

func TestResolve_NoResults(t *testing.T) {
	client := geocoderStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	})

	_, err := client.Resolve(context.Background(), "Nowhereville")
	require.Error(t, err)
	assert.ErrorIs(t, err, tzlookup.ErrNoMatch)

	var lookupErr *tzlookup.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "Nowhereville", lookupErr.Place)
}

func TestResolve_MissingTimezoneIsNoMatch(t *testing.T) {
	client := geocoderStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"latitude":1,"longitude":2}]}`))
	})

	_, err := client.Resolve(context.Background(), "Wilmette")
	assert.ErrorIs(t, err, tzlookup.ErrNoMatch)
}

func TestResolve_ServerError(t *testing.T) {
	client := geocoderStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Resolve(context.Background(), "Wilmette")
	var lookupErr *tzlookup.LookupError
	require.ErrorAs(t, err, &lookupErr)
}

func TestResolve_BlankPlace(t *testing.T) {
	client := tzlookup.NewClient("http://unused.invalid")

	_, err := client.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, tzlookup.ErrNoMatch)
}

func TestResolveOrUTC_FallsBack(t *testing.T) {
	client := geocoderStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	loc := tzlookup.ResolveOrUTC(context.Background(), client, "Wilmette", zap.NewNop())
	assert.Equal(t, tzlookup.UTC, loc)
}

func TestResolveOrUTC_PassesThroughOnSuccess(t *testing.T) {
	client := geocoderStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"latitude":41.9,"longitude":12.5,"timezone":"Europe/Rome"}]}`))
	})

	loc := tzlookup.ResolveOrUTC(context.Background(), client, "Rome", nil)
	assert.Equal(t, "Europe/Rome", loc.Timezone)
}
