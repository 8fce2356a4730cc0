/*
queries.go - SQL for every store operation

All operations run through a session, which is bound either to the
pooled connection (plain Store calls, guarded by the mutex) or to a
transaction (inside WithTx). Nothing here takes locks.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sidrat/treasury-engine/fiscal"
	"github.com/sidrat/treasury-engine/ledger"
)

const fiscalYearColumns = `pk, year, month, day, current, work_on, audit, c_time, m_time`

func (s session) currentFiscalYear(ctx context.Context) (*fiscal.Year, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+fiscalYearColumns+` FROM fiscal_year WHERE current = TRUE`)

	y, err := scanYear(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read current fiscal year: %w", err)
	}
	return &y, nil
}

func (s session) fiscalYears(ctx context.Context, f ledger.YearFilter) ([]fiscal.Year, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	query := `SELECT ` + fiscalYearColumns + ` FROM fiscal_year`
	var args []any
	switch {
	case f.Year != nil:
		query += ` WHERE year = ?`
		args = append(args, *f.Year)
	case f.Month != nil:
		query += ` WHERE month = ?`
		args = append(args, *f.Month)
	case f.Day != nil:
		query += ` WHERE day = ?`
		args = append(args, *f.Day)
	case f.Current != nil:
		query += ` WHERE current = ?`
		args = append(args, *f.Current)
	}
	query += ` ORDER BY year ASC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fiscal years: %w", err)
	}
	defer rows.Close()

	var years []fiscal.Year
	for rows.Next() {
		y, err := scanYear(rows)
		if err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

func (s session) earliestYear(ctx context.Context) (int, error) {
	var min sql.NullInt64
	err := s.q.QueryRowContext(ctx, `SELECT MIN(year) FROM fiscal_year`).Scan(&min)
	if err != nil {
		return 0, fmt.Errorf("failed to read earliest year: %w", err)
	}
	if !min.Valid {
		return 0, nil
	}
	return int(min.Int64), nil
}

func (s session) applyTransition(ctx context.Context, t fiscal.Transition) error {
	now := s.now()

	if t.Demote != 0 {
		if _, err := s.q.ExecContext(ctx,
			`UPDATE fiscal_year SET current = FALSE, m_time = ? WHERE year = ?`,
			now, t.Demote,
		); err != nil {
			return fmt.Errorf("failed to demote year %d: %w", t.Demote, err)
		}
	}

	if t.Promote != 0 {
		res, err := s.q.ExecContext(ctx,
			`UPDATE fiscal_year SET current = TRUE, m_time = ? WHERE year = ?`,
			now, t.Promote,
		)
		if err != nil {
			return fmt.Errorf("failed to promote year %d: %w", t.Promote, err)
		}
		// The placeholder should always exist; recreate it as current if
		// an older database lost it.
		if n, _ := res.RowsAffected(); n == 0 {
			if err := s.insertYear(ctx, fiscal.YearSpec{Year: t.Promote, Current: true}, now); err != nil {
				return err
			}
		}
	}

	for _, spec := range t.Insert {
		if err := s.insertYear(ctx, spec, now); err != nil {
			return err
		}
	}
	return nil
}

func (s session) insertYear(ctx context.Context, spec fiscal.YearSpec, now string) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO fiscal_year (year, month, day, current, work_on, audit, c_time, m_time)
		 VALUES (?, ?, ?, ?, FALSE, FALSE, ?, ?)`,
		spec.Year, spec.Month, spec.Day, spec.Current, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fiscal year %d: %w", spec.Year, err)
	}
	return nil
}

func (s session) setYearFlags(ctx context.Context, year int, workOn, audit bool) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE fiscal_year SET work_on = ?, audit = ?, m_time = ? WHERE year = ?`,
		workOn, audit, s.now(), year,
	)
	if err != nil {
		return fmt.Errorf("failed to update flags for year %d: %w", year, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unknown fiscal year %d", year)
	}
	return nil
}

func (s session) months(ctx context.Context, f ledger.MonthFilter) ([]ledger.Month, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	query := `SELECT pk, month, ord FROM month`
	var args []any
	switch {
	case f.Name != nil:
		query += ` WHERE month = ?`
		args = append(args, *f.Name)
	case f.Ordinal != nil:
		query += ` WHERE ord = ?`
		args = append(args, *f.Ordinal)
	}
	query += ` ORDER BY ord ASC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query months: %w", err)
	}
	defer rows.Close()

	var months []ledger.Month
	for rows.Next() {
		var m ledger.Month
		if err := rows.Scan(&m.ID, &m.Name, &m.Ordinal); err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

func (s session) fieldTypes(ctx context.Context, names []string) ([]ledger.FieldType, error) {
	if len(names) == 0 {
		return nil, ledger.ErrEmptyFieldSet
	}

	query := `SELECT pk, field, c_time, m_time FROM field_type WHERE field IN (` +
		placeholders(len(names)) + `) ORDER BY field`

	rows, err := s.q.QueryContext(ctx, query, stringArgs(names)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query field types: %w", err)
	}
	defer rows.Close()

	var fields []ledger.FieldType
	for rows.Next() {
		var ft ledger.FieldType
		if err := rows.Scan(&ft.ID, &ft.Name, &ft.CreatedAt, &ft.ModifiedAt); err != nil {
			return nil, err
		}
		fields = append(fields, ft)
	}
	return fields, rows.Err()
}

func (s session) addFieldTypes(ctx context.Context, names []string) error {
	now := s.now()
	for _, name := range names {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO field_type (field, c_time, m_time) VALUES (?, ?, ?)`,
			name, now, now,
		); err != nil {
			return fmt.Errorf("failed to add field %q: %w", name, err)
		}
	}
	return nil
}

func (s session) values(ctx context.Context, q ledger.ValueQuery) ([]ledger.Row, error) {
	if len(q.Fields) == 0 {
		return nil, ledger.ErrEmptyFieldSet
	}

	query := `
		SELECT d.pk, ft.field, d.value, fy1.year, fy2.year, m.ord, d.c_time, d.m_time
		FROM data d
		JOIN field_type ft ON ft.pk = d.ffk
		JOIN fiscal_year fy1 ON fy1.pk = d.fy1fk
		JOIN fiscal_year fy2 ON fy2.pk = d.fy2fk
		LEFT JOIN month m ON m.pk = d.mfk
		WHERE ft.field IN (` + placeholders(len(q.Fields)) + `) AND fy1.year = ?`

	args := stringArgs(q.Fields)
	args = append(args, q.Year)

	// With a month the query disambiguates against the month and both
	// year-boundary rows; without one it projects the whole year.
	if q.Month != nil {
		query += ` AND m.ord = ? AND fy2.year = ?`
		args = append(args, *q.Month, q.Year+1)
	}
	query += ` ORDER BY ft.field ASC, d.pk ASC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query values: %w", err)
	}
	defer rows.Close()

	var out []ledger.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s session) insertValues(ctx context.Context, inserts []ledger.Insert) error {
	now := s.now()
	query := `
		INSERT INTO data (value, fy1fk, fy2fk, mfk, ffk, c_time, m_time)
		VALUES (?,
			(SELECT pk FROM fiscal_year WHERE year = ?),
			(SELECT pk FROM fiscal_year WHERE year = ?),
			(SELECT pk FROM month WHERE ord = ?),
			(SELECT pk FROM field_type WHERE field = ?),
			?, ?)`

	for _, ins := range inserts {
		var monthOrd any
		if ins.Month != nil {
			monthOrd = *ins.Month
		}
		_, err := s.q.ExecContext(ctx, query,
			ins.Value, ins.Year, ins.NextYear, monthOrd, ins.Field, now, now)
		if err != nil {
			if strings.Contains(err.Error(), "NOT NULL constraint failed: data.ffk") {
				return fmt.Errorf("%w: %q", ledger.ErrFieldMissing, ins.Field)
			}
			return fmt.Errorf("failed to insert value for %q: %w", ins.Field, err)
		}
	}
	return nil
}

func (s session) updateValues(ctx context.Context, updates []ledger.Update) error {
	now := s.now()
	for _, up := range updates {
		res, err := s.q.ExecContext(ctx,
			`UPDATE data SET value = ?, m_time = ? WHERE pk = ?`,
			up.Value, now, up.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update value %d: %w", up.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("data row %d vanished mid-update", up.ID)
		}
	}
	return nil
}

func (s session) pinReport(ctx context.Context, report string, dataIDs []int64) error {
	now := s.now()
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO report_type (report, c_time, m_time) VALUES (?, ?, ?)
		 ON CONFLICT(report) DO NOTHING`,
		report, now, now,
	); err != nil {
		return fmt.Errorf("failed to ensure report type %q: %w", report, err)
	}

	for _, id := range dataIDs {
		if _, err := s.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO report_pivot (rfk, dfk)
			 VALUES ((SELECT pk FROM report_type WHERE report = ?), ?)`,
			report, id,
		); err != nil {
			return fmt.Errorf("failed to pin data %d to report %q: %w", id, report, err)
		}
	}
	return nil
}

func (s session) reportValues(ctx context.Context, report string) ([]ledger.Row, error) {
	query := `
		SELECT d.pk, ft.field, d.value, fy1.year, fy2.year, m.ord, d.c_time, d.m_time
		FROM report_pivot rp
		JOIN report_type rt ON rt.pk = rp.rfk
		JOIN data d ON d.pk = rp.dfk
		JOIN field_type ft ON ft.pk = d.ffk
		JOIN fiscal_year fy1 ON fy1.pk = d.fy1fk
		JOIN fiscal_year fy2 ON fy2.pk = d.fy2fk
		LEFT JOIN month m ON m.pk = d.mfk
		WHERE rt.report = ?
		ORDER BY d.pk ASC`

	rows, err := s.q.QueryContext(ctx, query, report)
	if err != nil {
		return nil, fmt.Errorf("failed to query report %q: %w", report, err)
	}
	defer rows.Close()

	var out []ledger.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanYear(sc scanner) (fiscal.Year, error) {
	var y fiscal.Year
	err := sc.Scan(&y.ID, &y.Year, &y.Month, &y.Day,
		&y.Current, &y.WorkOn, &y.Audit, &y.CreatedAt, &y.ModifiedAt)
	return y, err
}

func scanRow(sc scanner) (ledger.Row, error) {
	var (
		r     ledger.Row
		value any
		month sql.NullInt64
	)
	if err := sc.Scan(&r.ID, &r.Field, &value, &r.Year, &r.NextYear,
		&month, &r.CreatedAt, &r.ModifiedAt); err != nil {
		return r, fmt.Errorf("failed to scan data row: %w", err)
	}

	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	r.Value = value

	if month.Valid {
		ord := int(month.Int64)
		r.Month = &ord
	}
	return r, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(names []string) []any {
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	return args
}
