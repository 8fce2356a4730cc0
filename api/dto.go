/*
dto.go - Request/response shapes for the HTTP surface

The form layer exchanges {field_name: value} maps; these DTOs are the
wire form of that contract. Widget kinds travel as strings and map onto
the closed ledger.Kind enumeration.
*/
package api

import (
	"fmt"

	"github.com/sidrat/treasury-engine/ledger"
)

// FieldValueDTO is one field's value with its widget kind.
type FieldValueDTO struct {
	Kind  string `json:"kind" validate:"omitempty,oneof=text currency choice"`
	Value string `json:"value"`
}

// SavePanelRequest is the body of POST /api/panels/{panel}.
type SavePanelRequest struct {
	Values map[string]FieldValueDTO `json:"values" validate:"required,min=1,dive"`
}

func parseKind(s string) (ledger.Kind, error) {
	switch s {
	case "", "text":
		return ledger.KindText, nil
	case "currency":
		return ledger.KindCurrency, nil
	case "choice":
		return ledger.KindChoice, nil
	default:
		return 0, fmt.Errorf("unknown widget kind %q", s)
	}
}

// FiscalYearDTO mirrors one fiscal-year chain row.
type FiscalYearDTO struct {
	Year       int    `json:"year"`
	AnchorDate string `json:"anchor_date"`
	Current    bool   `json:"current"`
	WorkOn     bool   `json:"work_on"`
	Audit      bool   `json:"audit"`
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
}

// MonthDTO is one seeded calendar month.
type MonthDTO struct {
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
}

// TimezoneDTO is a resolved place.
type TimezoneDTO struct {
	Place     string  `json:"place"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Fallback  bool    `json:"fallback"`
}

// YearFlagsRequest is the body of POST /api/fiscal-years/{year}/flags.
type YearFlagsRequest struct {
	WorkOn bool `json:"work_on"`
	Audit  bool `json:"audit"`
}

// PinReportRequest is the body of POST /api/reports/{report}/pin.
type PinReportRequest struct {
	DataIDs []int64 `json:"data_ids" validate:"required,min=1"`
}

// RowDTO is one stored transaction value.
type RowDTO struct {
	ID       int64  `json:"id"`
	Field    string `json:"field"`
	Value    any    `json:"value"`
	Year     int    `json:"year"`
	NextYear int    `json:"next_year"`
	Month    *int   `json:"month,omitempty"`
}

func rowDTO(r ledger.Row) RowDTO {
	return RowDTO{
		ID:       r.ID,
		Field:    r.Field,
		Value:    r.Value,
		Year:     r.Year,
		NextYear: r.NextYear,
		Month:    r.Month,
	}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
