package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sidrat/treasury-engine/api"
	"github.com/sidrat/treasury-engine/ledger"
	"github.com/sidrat/treasury-engine/store/sqlite"
	"github.com/sidrat/treasury-engine/tzlookup"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type stubResolver struct {
	loc tzlookup.Location
	err error
}

func (s stubResolver) Resolve(_ context.Context, place string) (tzlookup.Location, error) {
	if s.err != nil {
		return tzlookup.Location{}, &tzlookup.LookupError{Place: place, Err: s.err}
	}
	return s.loc, nil
}

func newTestServer(t *testing.T, resolver tzlookup.Resolver) *httptest.Server {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if resolver == nil {
		resolver = stubResolver{loc: tzlookup.Location{Timezone: "America/Chicago"}}
	}

	keeper := ledger.NewKeeper(store, zap.NewNop())
	handler := api.NewHandler(keeper, resolver, zap.NewNop())
	srv := httptest.NewServer(api.NewRouter(handler, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	buf, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func orgPanelBody(date string) map[string]any {
	return map[string]any{
		"values": map[string]any{
			"fiscal_year_first_day": map[string]string{"kind": "text", "value": date},
			"treasurer_name":        map[string]string{"kind": "text", "value": "R. Effendi"},
			"location_city_name":    map[string]string{"kind": "text", "value": "Wilmette"},
		},
	}
}

// =============================================================================
// PANELS
// =============================================================================

func TestSavePanel_EndToEnd(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/api/panels/organization", orgPanelBody("0182-02-19"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The chain seeded: current year plus placeholder.
	resp, err := http.Get(srv.URL + "/api/fiscal-years")
	require.NoError(t, err)
	years := decode[[]api.FiscalYearDTO](t, resp)
	require.Len(t, years, 2)
	assert.Equal(t, 182, years[0].Year)
	assert.True(t, years[0].Current)
	assert.Equal(t, "02-19", years[0].AnchorDate)
	assert.False(t, years[1].Current)
}

func TestSavePanel_UserErrorsAre400(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			"empty required field",
			map[string]any{"values": map[string]any{
				"fiscal_year_first_day": map[string]string{"value": "0182-02-19"},
				"treasurer_name":        map[string]string{"value": ""},
			}},
		},
		{
			"bad currency amount",
			map[string]any{"values": map[string]any{
				"cash_in_bank": map[string]string{"kind": "currency", "value": "not money"},
			}},
		},
		{
			"no values at all",
			map[string]any{"values": map[string]any{}},
		},
		{
			"unknown widget kind",
			map[string]any{"values": map[string]any{
				"x": map[string]string{"kind": "dropdown", "value": "1"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/panels/organization", tt.body)
			body := decode[api.ErrorResponse](t, resp)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestSavePanel_FiscalGapIs400(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/api/panels/organization", orgPanelBody("0182-02-19"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/panels/organization", orgPanelBody("0185-02-19"))
	body := decode[api.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body.Error)
}

func TestLoadPanel_RoundTrip(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/api/panels/organization", orgPanelBody("0182-02-19"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/panels/budget", map[string]any{
		"values": map[string]any{
			"cash_in_bank": map[string]string{"kind": "currency", "value": "1234.50"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/panels/budget/values?fields=cash_in_bank:currency,treasurer_name")
	require.NoError(t, err)
	values := decode[map[string]string](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1234.50", values["cash_in_bank"])
	assert.Equal(t, "R. Effendi", values["treasurer_name"])
}

func TestLoadPanel_MissingFieldsParam(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/panels/budget/values")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// FISCAL YEARS & MONTHS
// =============================================================================

func TestListFiscalYears_ConflictingFilterIs400(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/fiscal-years?year=182&current=true")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetYearFlags_EndToEnd(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/api/panels/organization", orgPanelBody("0182-02-19"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/fiscal-years/182/flags",
		map[string]bool{"work_on": true, "audit": false})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/fiscal-years?year=182")
	require.NoError(t, err)
	years := decode[[]api.FiscalYearDTO](t, resp)
	require.Len(t, years, 1)
	assert.True(t, years[0].WorkOn)
	assert.False(t, years[0].Audit)
}

func TestListMonths(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/months")
	require.NoError(t, err)
	months := decode[[]api.MonthDTO](t, resp)
	require.Len(t, months, 20)
	assert.Equal(t, "Ayyam-i-Ha", months[0].Name)

	resp, err = http.Get(srv.URL + "/api/months?ord=1")
	require.NoError(t, err)
	months = decode[[]api.MonthDTO](t, resp)
	require.Len(t, months, 1)
	assert.Equal(t, "Baha", months[0].Name)
}

// =============================================================================
// ORGANIZATION & TIMEZONE
// =============================================================================

func TestGetOrganization_ReflectsLastSave(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/organization")
	require.NoError(t, err)
	snap := decode[map[string]string](t, resp)
	assert.Empty(t, snap)

	resp = postJSON(t, srv.URL+"/api/panels/organization", orgPanelBody("0182-02-19"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/organization")
	require.NoError(t, err)
	snap = decode[map[string]string](t, resp)
	assert.Equal(t, "R. Effendi", snap["treasurer_name"])
	assert.Equal(t, "Wilmette", snap["location_city_name"])
}

func TestGetTimezone_UsesOrganizationCity(t *testing.T) {
	srv := newTestServer(t, stubResolver{
		loc: tzlookup.Location{Timezone: "America/Chicago", Latitude: 42.07, Longitude: -87.72},
	})

	resp := postJSON(t, srv.URL+"/api/panels/organization", orgPanelBody("0182-02-19"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/timezone")
	require.NoError(t, err)
	tz := decode[api.TimezoneDTO](t, resp)
	assert.Equal(t, "Wilmette", tz.Place)
	assert.Equal(t, "America/Chicago", tz.Timezone)
	assert.False(t, tz.Fallback)
}

func TestGetTimezone_DegradesToUTC(t *testing.T) {
	srv := newTestServer(t, stubResolver{err: tzlookup.ErrNoMatch})

	resp, err := http.Get(srv.URL + "/api/timezone?place=Nowhereville")
	require.NoError(t, err)
	tz := decode[api.TimezoneDTO](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "lookup failure is never an HTTP error")
	assert.Equal(t, "UTC", tz.Timezone)
	assert.True(t, tz.Fallback)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestPinAndGetReport(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/api/panels/organization", orgPanelBody("0182-02-19"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/panels/budget", map[string]any{
		"values": map[string]any{
			"cash_in_bank": map[string]string{"kind": "currency", "value": "1000.00"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Find the stored row id through the report-free read path.
	resp, err := http.Get(srv.URL + "/api/panels/budget/values?fields=cash_in_bank:currency")
	require.NoError(t, err)
	resp.Body.Close()

	// Pin by id 1: the only data rows so far belong to the organization
	// save and the budget save, in insertion order.
	pin := func(ids []int64) *http.Response {
		return postJSON(t, srv.URL+"/api/reports/annual_summary/pin",
			map[string]any{"data_ids": ids})
	}

	resp = pin([]int64{1})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/reports/annual_summary")
	require.NoError(t, err)
	rows := decode[[]api.RowDTO](t, resp)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, 182, rows[0].Year)
}

func TestPinReport_EmptyIDsIs400(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/api/reports/annual_summary/pin",
		map[string]any{"data_ids": []int64{}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
