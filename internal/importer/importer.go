// Package importer reads a convertible-ledger spreadsheet export and turns
// it into rounds grouped by valuation cap, holding finalized VCs.
package importer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ajitpratap0/fundcrm/internal/format"
	"github.com/ajitpratap0/fundcrm/internal/metrics"
	"github.com/ajitpratap0/fundcrm/internal/models"
	"github.com/ajitpratap0/fundcrm/internal/state"
)

// Import failures, one per cause.
var (
	ErrSheetNotFound  = errors.New("no sheet named like \"convertible ledger\"")
	ErrHeaderNotFound = errors.New("no header row containing \"stakeholder name\"")
	ErrMissingColumns = errors.New("required columns missing")
	ErrNoValidRows    = errors.New("no rows with a name and positive principal")
)

const (
	sheetPhrase   = "convertible ledger"
	namePhrase    = "stakeholder name"
	emailPhrase   = "stakeholder email"
	principalWord = "principal"
	valuationWord = "valuation"

	// fallbackValuationColumn is used when no header mentions a valuation.
	fallbackValuationColumn = "R"
)

var (
	million      = decimal.NewFromInt(1_000_000)
	targetMarkup = decimal.RequireFromString("1.1")
)

// Row is one valid ledger line.
type Row struct {
	Line         int
	Name         string
	Email        string
	Principal    decimal.Decimal
	Valuation    decimal.Decimal
	HasValuation bool
}

// Group is a synthesized round: rows sharing a cap rounded to the nearest
// million.
type Group struct {
	Name   string
	Cap    decimal.Decimal
	Target decimal.Decimal
	Rows   []Row
}

// Plan is the grouped import, ready to become actions.
type Plan struct {
	Groups   []Group
	Unsorted []Row
}

// Parse reads an xlsx workbook and returns its valid ledger rows.
func Parse(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := ""
	for _, name := range f.GetSheetList() {
		if strings.Contains(strings.ToLower(name), sheetPhrase) {
			sheet = name
			break
		}
	}
	if sheet == "" {
		return nil, ErrSheetNotFound
	}
	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return ParseRows(grid)
}

type columns struct {
	name, email, principal, valuation int
}

// ParseRows locates the header in grid, maps the columns and returns every
// data row with a name and a positive principal.
func ParseRows(grid [][]string) ([]Row, error) {
	header := -1
	for i, row := range grid {
		if containsPhrase(row, namePhrase) {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, ErrHeaderNotFound
	}

	cols, err := mapColumns(grid[header])
	if err != nil {
		return nil, err
	}

	var rows []Row
	for i := header + 1; i < len(grid); i++ {
		line := grid[i]
		name := strings.TrimSpace(cell(line, cols.name))
		if name == "" {
			continue
		}
		principal, ok := format.ParseCell(cell(line, cols.principal))
		if !ok || !principal.IsPositive() {
			continue
		}
		row := Row{
			Line:      i + 1,
			Name:      name,
			Email:     strings.TrimSpace(cell(line, cols.email)),
			Principal: principal,
		}
		if v, ok := format.ParseCell(cell(line, cols.valuation)); ok && v.IsPositive() {
			row.Valuation = v
			row.HasValuation = true
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrNoValidRows
	}
	return rows, nil
}

func mapColumns(header []string) (columns, error) {
	cols := columns{name: -1, email: -1, principal: -1, valuation: -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case cols.name < 0 && strings.Contains(h, namePhrase):
			cols.name = i
		case cols.email < 0 && strings.Contains(h, emailPhrase):
			cols.email = i
		case cols.principal < 0 && strings.Contains(h, principalWord):
			cols.principal = i
		case cols.valuation < 0 && strings.Contains(h, valuationWord):
			cols.valuation = i
		}
	}
	var missing []string
	if cols.name < 0 {
		missing = append(missing, namePhrase)
	}
	if cols.principal < 0 {
		missing = append(missing, principalWord)
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	if cols.valuation < 0 {
		n, err := excelize.ColumnNameToNumber(fallbackValuationColumn)
		if err != nil {
			return cols, fmt.Errorf("resolving fallback valuation column: %w", err)
		}
		cols.valuation = n - 1
	}
	return cols, nil
}

func containsPhrase(row []string, phrase string) bool {
	for _, c := range row {
		if strings.Contains(strings.ToLower(c), phrase) {
			return true
		}
	}
	return false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Build groups rows by valuation cap rounded to the nearest million. Each
// group's target is ceil(sum of principals × 1.1). Rows without a
// valuation, or with one that rounds to a zero cap, are left unsorted.
// Groups come out in ascending cap order.
func Build(rows []Row) Plan {
	byCap := map[string]*Group{}
	var plan Plan
	for _, r := range rows {
		if !r.HasValuation {
			plan.Unsorted = append(plan.Unsorted, r)
			continue
		}
		capValue := r.Valuation.Div(million).Round(0).Mul(million)
		if capValue.IsZero() {
			plan.Unsorted = append(plan.Unsorted, r)
			continue
		}
		key := capValue.String()
		g, ok := byCap[key]
		if !ok {
			g = &Group{
				Name: format.FormatMillions(capValue.InexactFloat64()) + " Cap",
				Cap:  capValue,
			}
			byCap[key] = g
		}
		g.Rows = append(g.Rows, r)
	}

	for _, g := range byCap {
		sum := decimal.Zero
		for _, r := range g.Rows {
			sum = sum.Add(r.Principal)
		}
		g.Target = sum.Mul(targetMarkup).Ceil()
		plan.Groups = append(plan.Groups, *g)
	}
	sort.Slice(plan.Groups, func(i, j int) bool {
		return plan.Groups[i].Cap.LessThan(plan.Groups[j].Cap)
	})
	return plan
}

// Actions turns the plan into AddRound and AddVC actions with fresh ids.
// New rounds follow any existing ones.
func (p Plan) Actions() []state.Action {
	var actions []state.Action
	for _, g := range p.Groups {
		round := state.NewRound(g.Name, g.Cap.InexactFloat64(), g.Target.InexactFloat64())
		actions = append(actions, state.AddRound{Round: round})
		for _, r := range g.Rows {
			actions = append(actions, state.AddVC{VC: rowVC(r), RoundID: round.ID})
		}
	}
	for _, r := range p.Unsorted {
		actions = append(actions, state.AddVC{VC: rowVC(r)})
	}
	return actions
}

func rowVC(r Row) models.VC {
	amount := r.Principal.InexactFloat64()
	vc := state.NewVC(r.Name, models.StatusFinalized, &amount)
	vc.Email = r.Email
	return vc
}

// Result summarizes an applied import.
type Result struct {
	Rounds   int `json:"rounds"`
	VCs      int `json:"vcs"`
	Unsorted int `json:"unsorted"`
	Failed   int `json:"failed"`
}

// Importer applies parsed workbooks through a dispatcher.
type Importer struct {
	dispatcher *state.Dispatcher
	logger     *slog.Logger
}

// New creates an Importer.
func New(d *state.Dispatcher, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{dispatcher: d, logger: logger}
}

// Import parses r completely, then dispatches the resulting actions. Nothing
// is dispatched if parsing fails. Individual actions that are rejected are
// logged and counted, not rolled back.
func (im *Importer) Import(r io.Reader) (Result, error) {
	rows, err := Parse(r)
	if err != nil {
		return Result{}, err
	}
	plan := Build(rows)
	return im.Apply(plan), nil
}

// Apply dispatches plan's actions.
func (im *Importer) Apply(plan Plan) Result {
	res := Result{Unsorted: len(plan.Unsorted)}
	for _, a := range plan.Actions() {
		_, ev := im.dispatcher.Dispatch(a)
		if ev.IsZero() || ev.Level == state.LevelError {
			res.Failed++
			im.logger.Warn("import action rejected", "kind", a.Kind(), "message", ev.Message)
			continue
		}
		switch a.(type) {
		case state.AddRound:
			res.Rounds++
		case state.AddVC:
			res.VCs++
			metrics.Inc(metrics.ImportRows)
		}
	}
	im.logger.Info("import applied", "rounds", res.Rounds, "vcs", res.VCs, "unsorted", res.Unsorted, "failed", res.Failed)
	return res
}
