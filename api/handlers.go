/*
handlers.go - HTTP handlers for the bookkeeping core

ENDPOINTS:
  POST /api/panels/{panel}         Save a panel's field values
  GET  /api/panels/{panel}/values  Load values for the current year
  GET  /api/fiscal-years           The fiscal-year chain (one filter dim)
  POST /api/fiscal-years/{year}/flags  Set work-on/audit flags
  GET  /api/months                 Seeded Badí' months
  GET  /api/organization           Cached organization snapshot
  GET  /api/timezone               Resolve a place (degrades to UTC)
  POST /api/reports/{report}/pin   Pin data rows to a report
  GET  /api/reports/{report}       Read a report's pinned rows
  GET  /health

ERROR MAPPING:
  400  user-correctable input (empty fields, fiscal gap, bad amounts)
       and malformed requests
  500  integrity and storage failures; the body carries a generic
       message, the log carries the diagnostics
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sidrat/treasury-engine/ledger"
	"github.com/sidrat/treasury-engine/tzlookup"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Keeper   *ledger.Keeper
	Resolver tzlookup.Resolver

	log      *zap.Logger
	validate *validator.Validate
}

// NewHandler creates a handler over the keeper and timezone resolver.
func NewHandler(keeper *ledger.Keeper, resolver tzlookup.Resolver, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Keeper:   keeper,
		Resolver: resolver,
		log:      log,
		validate: validator.New(),
	}
}

// SavePanel persists one panel's values.
func (h *Handler) SavePanel(w http.ResponseWriter, r *http.Request) {
	panel := chi.URLParam(r, "panel")

	var req SavePanelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	values := make(ledger.PanelValues, len(req.Values))
	for name, dto := range req.Values {
		kind, err := parseKind(dto.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		values[name] = ledger.Value{Kind: kind, Text: dto.Value}
	}

	if err := h.Keeper.SavePanel(r.Context(), panel, values); err != nil {
		h.writeSaveError(w, panel, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// LoadPanel returns display-formatted values for the requested fields.
// Fields arrive as "name" or "name:kind" entries in the fields query
// parameter.
func (h *Handler) LoadPanel(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("fields")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "fields query parameter is required")
		return
	}

	fields := map[string]ledger.Kind{}
	for _, entry := range strings.Split(raw, ",") {
		name, kindStr, _ := strings.Cut(entry, ":")
		kind, err := parseKind(kindStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		fields[strings.TrimSpace(name)] = kind
	}

	values, err := h.Keeper.LoadPanel(r.Context(), fields)
	if err != nil {
		h.internalError(w, "panel load failed", err)
		return
	}

	writeJSON(w, http.StatusOK, values)
}

// ListFiscalYears returns the chain, optionally filtered by one of
// year, month, day or current.
func (h *Handler) ListFiscalYears(w http.ResponseWriter, r *http.Request) {
	var f ledger.YearFilter
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		f.Year = &n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be an integer")
			return
		}
		f.Month = &n
	}
	if v := q.Get("day"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "day must be an integer")
			return
		}
		f.Day = &n
	}
	if v := q.Get("current"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "current must be a boolean")
			return
		}
		f.Current = &b
	}

	years, err := h.Keeper.Store().FiscalYears(r.Context(), f)
	if err != nil {
		if errors.Is(err, ledger.ErrConflictingFilter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.internalError(w, "fiscal year query failed", err)
		return
	}

	dtos := make([]FiscalYearDTO, len(years))
	for i, y := range years {
		dtos[i] = FiscalYearDTO{
			Year:       y.Year,
			AnchorDate: fmt.Sprintf("%02d-%02d", y.Month, y.Day),
			Current:    y.Current,
			WorkOn:     y.WorkOn,
			Audit:      y.Audit,
			CreatedAt:  y.CreatedAt,
			ModifiedAt: y.ModifiedAt,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SetYearFlags updates the work-on/audit flags of one year.
func (h *Handler) SetYearFlags(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year must be an integer")
		return
	}

	var req YearFlagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Keeper.Store().SetYearFlags(r.Context(), year, req.WorkOn, req.Audit); err != nil {
		h.internalError(w, "flag update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ListMonths returns the seeded months, optionally filtered by name or
// ordinal.
func (h *Handler) ListMonths(w http.ResponseWriter, r *http.Request) {
	var f ledger.MonthFilter
	q := r.URL.Query()
	if v := q.Get("name"); v != "" {
		f.Name = &v
	}
	if v := q.Get("ord"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "ord must be an integer")
			return
		}
		f.Ordinal = &n
	}

	months, err := h.Keeper.Store().Months(r.Context(), f)
	if err != nil {
		if errors.Is(err, ledger.ErrConflictingFilter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.internalError(w, "month query failed", err)
		return
	}

	dtos := make([]MonthDTO, len(months))
	for i, m := range months {
		dtos[i] = MonthDTO{Name: m.Name, Ordinal: m.Ordinal}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOrganization returns the cached organization snapshot.
func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Keeper.Organization().Get())
}

// GetTimezone resolves a place name; with no place parameter it falls
// back to the organization's city. Resolution failure degrades to UTC,
// never an error.
func (h *Handler) GetTimezone(w http.ResponseWriter, r *http.Request) {
	place := r.URL.Query().Get("place")
	if place == "" {
		place, _ = h.Keeper.Organization().Lookup(ledger.FieldLocationCity)
	}

	loc, err := h.Resolver.Resolve(r.Context(), place)
	fallback := false
	if err != nil {
		h.log.Warn("timezone lookup failed; using UTC",
			zap.String("place", place), zap.Error(err))
		loc = tzlookup.UTC
		fallback = true
	}

	writeJSON(w, http.StatusOK, TimezoneDTO{
		Place:     place,
		Timezone:  loc.Timezone,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Fallback:  fallback,
	})
}

// PinReport associates data rows with a named report.
func (h *Handler) PinReport(w http.ResponseWriter, r *http.Request) {
	report := chi.URLParam(r, "report")

	var req PinReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Keeper.Store().PinReport(r.Context(), report, req.DataIDs); err != nil {
		h.internalError(w, "report pin failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pinned"})
}

// GetReport returns the rows pinned to a report.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report := chi.URLParam(r, "report")

	rows, err := h.Keeper.Store().ReportValues(r.Context(), report)
	if err != nil {
		h.internalError(w, "report query failed", err)
		return
	}

	dtos := make([]RowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = rowDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeSaveError(w http.ResponseWriter, panel string, err error) {
	if ledger.IsUserError(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error("panel save failed", zap.String("panel", panel), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "save failed; contact the developer")
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, msg+"; contact the developer")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
