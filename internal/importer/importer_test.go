package importer

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ajitpratap0/fundcrm/internal/models"
	"github.com/ajitpratap0/fundcrm/internal/state"
)

func workbook(t *testing.T, sheet string, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func ledger() [][]any {
	return [][]any{
		{"Company Convertible Ledger"},
		{},
		{"Stakeholder Name", "Stakeholder Email", "Principal", "Valuation Cap"},
		{"Acme Capital", "deals@acme.vc", 100000, 2050000},
		{"Beta Ventures", "", "$50,000", "1,980,000"},
		{"", "nobody@example.com", 10000, 2000000},
		{"Zero Fund", "", 0, 3000000},
		{"Gamma Angels", "", 25000, ""},
		{"Delta Partners", "", 200000, 7600000},
	}
}

func TestParse_GroupsByRoundedCap(t *testing.T) {
	rows, err := Parse(workbook(t, "Convertible Ledger (Export)", ledger()))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Acme Capital", rows[0].Name)
	assert.Equal(t, "deals@acme.vc", rows[0].Email)
	assert.False(t, rows[2].HasValuation)

	plan := Build(rows)
	require.Len(t, plan.Groups, 2)

	two := plan.Groups[0]
	assert.Equal(t, "$2.0M Cap", two.Name)
	assert.True(t, two.Cap.Equal(decimal.NewFromInt(2_000_000)))
	assert.True(t, two.Target.Equal(decimal.NewFromInt(165_000)), two.Target.String())
	assert.Len(t, two.Rows, 2)

	eight := plan.Groups[1]
	assert.Equal(t, "$8.0M Cap", eight.Name)
	assert.True(t, eight.Target.Equal(decimal.NewFromInt(220_000)))

	require.Len(t, plan.Unsorted, 1)
	assert.Equal(t, "Gamma Angels", plan.Unsorted[0].Name)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(workbook(t, "Cap Table", ledger()))
	assert.ErrorIs(t, err, ErrSheetNotFound)

	_, err = Parse(workbook(t, "convertible ledger", [][]any{{"Name", "Principal"}, {"Acme", 1}}))
	assert.ErrorIs(t, err, ErrHeaderNotFound)

	_, err = Parse(workbook(t, "convertible ledger", [][]any{{"Stakeholder Name", "Amount"}, {"Acme", 1}}))
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, err = Parse(workbook(t, "convertible ledger", [][]any{{"Stakeholder Name", "Principal"}, {"Acme", 0}}))
	assert.ErrorIs(t, err, ErrNoValidRows)

	_, err = Parse(bytes.NewBufferString("not a workbook"))
	assert.Error(t, err)
}

func TestParseRows_FallbackValuationColumn(t *testing.T) {
	header := make([]string, 18)
	header[0] = "Stakeholder Name"
	header[1] = "Principal"
	row := make([]string, 18)
	row[0] = "Acme"
	row[1] = "1,000"
	row[17] = "$4,400,000"

	rows, err := ParseRows([][]string{header, row})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].HasValuation)
	assert.True(t, rows[0].Valuation.Equal(decimal.NewFromInt(4_400_000)))
	assert.Equal(t, "$4.0M Cap", Build(rows).Groups[0].Name)
}

func TestImporter_Import(t *testing.T) {
	d := state.NewDispatcher(models.NewState(), nil, nil)
	d.Dispatch(state.AddRound{Round: models.Round{ID: "existing", Name: "Pre-seed"}})
	im := New(d, slog.New(slog.NewTextHandler(io.Discard, nil)))

	res, err := im.Import(workbook(t, "Convertible Ledger", ledger()))
	require.NoError(t, err)
	assert.Equal(t, Result{Rounds: 2, VCs: 4, Unsorted: 1}, res)

	s := d.State()
	require.Len(t, s.Rounds, 3)
	assert.Equal(t, "Pre-seed", s.Rounds[0].Name)
	assert.Equal(t, "$2.0M Cap", s.Rounds[1].Name)
	assert.Equal(t, 1, s.Rounds[1].Order)
	assert.Equal(t, 165000.0, s.Rounds[1].TargetAmount)
	assert.Len(t, s.Rounds[1].VCs, 2)
	assert.Len(t, s.UnsortedVCs, 1)

	for _, id := range s.Rounds[1].VCs {
		vc := s.VCs[id]
		assert.Equal(t, models.StatusFinalized, vc.Status)
		amt, ok := vc.Commitment()
		assert.True(t, ok)
		assert.Positive(t, amt)
	}
}

func TestImporter_NoPartialWritesOnError(t *testing.T) {
	d := state.NewDispatcher(models.NewState(), nil, nil)
	im := New(d, nil)

	_, err := im.Import(workbook(t, "Convertible Ledger", [][]any{{"Stakeholder Name", "Principal"}}))
	require.ErrorIs(t, err, ErrNoValidRows)
	assert.True(t, d.State().IsEmpty())
}

func TestBuild_SubMillionCapIsUnsorted(t *testing.T) {
	rows := []Row{
		{Name: "Tiny Cap", Principal: decimal.NewFromInt(10_000), Valuation: decimal.NewFromInt(400_000), HasValuation: true},
		{Name: "Half Million", Principal: decimal.NewFromInt(20_000), Valuation: decimal.NewFromInt(500_000), HasValuation: true},
	}
	plan := Build(rows)

	require.Len(t, plan.Unsorted, 1)
	assert.Equal(t, "Tiny Cap", plan.Unsorted[0].Name)
	require.Len(t, plan.Groups, 1)
	assert.Equal(t, "$1.0M Cap", plan.Groups[0].Name)
}
