package fiscal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidrat/treasury-engine/badi"
	"github.com/sidrat/treasury-engine/fiscal"
)

func currentYear(y int) *fiscal.Year {
	return &fiscal.Year{Year: y, Month: 2, Day: 19, Current: true}
}

func date(y int) badi.Date {
	return badi.Date{Year: y, Month: 2, Day: 19}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		entered  int
		current  *fiscal.Year
		earliest int
		want     fiscal.Classification
	}{
		{"first run", 182, nil, 0, fiscal.FirstRun},
		{"same year", 182, currentYear(182), 182, fiscal.SameYear},
		{"next year", 183, currentYear(182), 182, fiscal.NextYear},
		{"previous year", 181, currentYear(182), 182, fiscal.PreviousYear},
		{"gap forward", 185, currentYear(182), 182, fiscal.InvalidGap},
		{"gap backward", 179, currentYear(182), 181, fiscal.InvalidGap},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := fiscal.Classify(date(c.entered), c.current, c.earliest)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestPlan_FirstRun(t *testing.T) {
	// The entered year becomes current; the next year is laid down as
	// the placeholder.
	tr, err := fiscal.Plan(date(182), nil, 0)
	require.NoError(t, err)

	assert.Equal(t, fiscal.FirstRun, tr.Classification)
	assert.Zero(t, tr.Demote)
	assert.Zero(t, tr.Promote)
	require.Len(t, tr.Insert, 2)
	assert.Equal(t, fiscal.YearSpec{Year: 182, Month: 2, Day: 19, Current: true}, tr.Insert[0])
	assert.Equal(t, fiscal.YearSpec{Year: 183, Month: 2, Day: 19, Current: false}, tr.Insert[1])
}

func TestPlan_SameYear_NoOp(t *testing.T) {
	tr, err := fiscal.Plan(date(182), currentYear(182), 182)
	require.NoError(t, err)
	assert.True(t, tr.IsEmpty())
}

func TestPlan_NextYear(t *testing.T) {
	// 183 already exists as the placeholder: demote 182, promote 183,
	// insert 184.
	tr, err := fiscal.Plan(date(183), currentYear(182), 182)
	require.NoError(t, err)

	assert.Equal(t, fiscal.NextYear, tr.Classification)
	assert.Equal(t, 182, tr.Demote)
	assert.Equal(t, 183, tr.Promote)
	require.Len(t, tr.Insert, 1)
	assert.Equal(t, 184, tr.Insert[0].Year)
	assert.False(t, tr.Insert[0].Current)
}

func TestPlan_PreviousYear_NeverCurrent(t *testing.T) {
	tr, err := fiscal.Plan(date(181), currentYear(182), 182)
	require.NoError(t, err)

	assert.Equal(t, fiscal.PreviousYear, tr.Classification)
	assert.Zero(t, tr.Demote)
	assert.Zero(t, tr.Promote)
	require.Len(t, tr.Insert, 1)
	assert.Equal(t, 181, tr.Insert[0].Year)
	assert.False(t, tr.Insert[0].Current)
}

func TestPlan_InvalidGap(t *testing.T) {
	tr, err := fiscal.Plan(date(185), currentYear(182), 182)
	require.Error(t, err)

	var gap *fiscal.GapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, 185, gap.Entered)
	assert.Equal(t, 182, gap.Current)

	// Nothing to apply on rejection.
	assert.True(t, tr.IsEmpty())
}
