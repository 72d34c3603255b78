package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dushixiang/alpha/internal/ledger"
	"github.com/dushixiang/alpha/internal/xe"
	"github.com/dushixiang/alpha/pkg/calday"
	"github.com/spf13/cast"
)

// 逻辑列
const (
	colAccount = "accountname"
	colDate    = "date"
	colStart   = "start"
	colEnd     = "end"
	colVolume  = "vol"
	colProfit  = "profit"
	colDeduct  = "deducted"
	colBalance = "balance"
	colBonus   = "bonus"
	colRisk    = "riskdate"
	colLogin   = "lastlogin"
)

// requiredColumns 缺失时按此顺序做位置回退
var requiredColumns = []string{colAccount, colDate, colStart, colEnd, colVolume, colProfit, colDeduct}

var aliases = map[string]string{
	"accountname":    colAccount,
	"account":        colAccount,
	"name":           colAccount,
	"date":           colDate,
	"day":            colDate,
	"start":          colStart,
	"startbalance":   colStart,
	"end":            colEnd,
	"endbalance":     colEnd,
	"vol":            colVolume,
	"volume":         colVolume,
	"profit":         colProfit,
	"deducted":       colDeduct,
	"deductedpoints": colDeduct,
	"balance":        colBalance,
	"bonus":          colBonus,
	"bonuspoints":    colBonus,
	"riskdate":       colRisk,
	"risk":           colRisk,
	"lastlogin":      colLogin,
	"login":          colLogin,
}

// normalizeHeader "Start Balance" -> "startbalance"
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "", "\"", "", "\ufeff", "").Replace(h)
}

type columns map[string]int

func newColumns(header []string) columns {
	cols := columns{}
	for i, h := range header {
		if key, ok := aliases[normalizeHeader(h)]; ok {
			if _, dup := cols[key]; !dup {
				cols[key] = i
			}
		}
	}
	claimed := map[int]bool{}
	for _, i := range cols {
		claimed[i] = true
	}
	// 表头无法识别时按位置取值，已被其他列占用的位置不回退
	for pos, key := range requiredColumns {
		if _, ok := cols[key]; !ok && !claimed[pos] {
			cols[key] = pos
		}
	}
	return cols
}

func (c columns) get(record []string, key string) (string, bool) {
	i, ok := c[key]
	if !ok || i >= len(record) {
		return "", false
	}
	return strings.TrimSpace(record[i]), true
}

// ParseCSV 解析导入文件。只有读取失败才返回 error，行级问题记录在 ImportRow.Err 中。
func ParseCSV(r io.Reader) ([]ledger.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols := newColumns(header)

	var rows []ledger.ImportRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				rows = append(rows, ledger.ImportRow{Line: pe.Line, Err: fmt.Errorf("%w: %v", xe.ErrParse, err)})
				continue
			}
			return rows, err
		}
		if blank(record) {
			continue
		}
		row := parseRow(cols, record)
		row.Line, _ = reader.FieldPos(0)
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRow(cols columns, record []string) ledger.ImportRow {
	var row ledger.ImportRow
	fail := func(format string, args ...any) ledger.ImportRow {
		row.Err = fmt.Errorf("%w: %s", xe.ErrParse, fmt.Sprintf(format, args...))
		return row
	}

	name, _ := cols.get(record, colAccount)
	dateStr, _ := cols.get(record, colDate)
	if name == "" || dateStr == "" {
		return fail("missing account or date (account=%q, date=%q)", name, dateStr)
	}
	day, err := calday.ParseFlexible(dateStr)
	if err != nil {
		return fail("%v", err)
	}
	row.Name = name
	row.Day = day

	numbers := map[string]*float64{
		colStart:  &row.Entry.StartBalance,
		colEnd:    &row.Entry.EndBalance,
		colVolume: &row.Entry.Volume,
		colProfit: &row.Entry.Profit,
		colDeduct: &row.Entry.DeductedPoints,
		colBonus:  &row.Entry.BonusPoints,
	}
	for key, dst := range numbers {
		v, err := number(cols, record, key)
		if err != nil {
			return fail("%s: %v", key, err)
		}
		*dst = v
	}

	// 没有 balance 列时用日终余额计算积分
	row.Entry.Balance = row.Entry.EndBalance
	if s, ok := cols.get(record, colBalance); ok && s != "" {
		v, err := cast.ToFloat64E(s)
		if err != nil {
			return fail("balance: %v", err)
		}
		row.Entry.Balance = v
	}

	if s, ok := cols.get(record, colRisk); ok && s != "" {
		d, err := calday.ParseFlexible(s)
		if err != nil {
			return fail("risk date: %v", err)
		}
		row.RiskDate = &d
	}
	if s, ok := cols.get(record, colLogin); ok && s != "" {
		t, err := parseTimestamp(s)
		if err != nil {
			return fail("last login: %v", err)
		}
		row.LastLogin = &t
	}
	return row
}

func number(cols columns, record []string, key string) (float64, error) {
	s, ok := cols.get(record, key)
	if !ok || s == "" {
		return 0, nil
	}
	return cast.ToFloat64E(s)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return calday.ParseFlexible(s)
}
