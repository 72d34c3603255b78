package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dushixiang/alpha/internal/ledger"
	"github.com/dushixiang/alpha/pkg/calday"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{
	"AccountName", "Date", "Start", "End", "Vol", "Balance", "Profit", "Deducted", "Bonus",
	"Pts", "15d Points", "RiskDate", "LastLogin", "LogoutDeadline",
}

// exportRow 一条记录加账户元数据，15日积分按记录当天回算
func exportRow(a *ledger.Account, r ledger.DailyRecord) []any {
	return []any{
		a.Name,
		calday.Format(r.Date),
		r.StartBalance,
		r.EndBalance,
		r.Volume,
		r.Balance,
		r.Profit,
		r.DeductedPoints,
		r.BonusPoints,
		r.TotalPoints,
		a.WindowSumAt(r.Date),
		formatDay(a.RiskDate),
		formatTime(a.LastLogin),
		formatTime(a.LogoutDeadline()),
	}
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return calday.Format(*t)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatCell(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV 每个账户每天一行，按日期升序
func WriteCSV(w io.Writer, accounts []ledger.Account) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for i := range accounts {
		a := &accounts[i]
		for _, r := range a.PointsHistory {
			values := exportRow(a, r)
			cells := make([]string, len(values))
			for j, v := range values {
				cells[j] = formatCell(v)
			}
			if err := writer.Write(cells); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

const (
	recordsSheet  = "Records"
	accountsSheet = "Accounts"
)

var accountsHeader = []any{
	"AccountName", "Balance", "Today Points", "Tomorrow Points", "Today PnL", "Lifetime PnL",
	"Today Volume", "RiskDate", "LastLogin", "LogoutDeadline",
}

// WriteXLSX 导出两个工作表：逐日记录和账户汇总
func WriteXLSX(w io.Writer, accounts []ledger.Account, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(accountsSheet); err != nil {
		return err
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(recordsSheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetSheetRow(accountsSheet, "A1", &accountsHeader); err != nil {
		return err
	}

	rowNo := 2
	for i := range accounts {
		a := &accounts[i]
		for _, r := range a.PointsHistory {
			values := exportRow(a, r)
			if err := f.SetSheetRow(recordsSheet, "A"+strconv.Itoa(rowNo), &values); err != nil {
				return err
			}
			rowNo++
		}

		s := a.Summarize(now)
		summary := []any{
			s.Name, s.Balance, s.TodayPoints, s.TomorrowPoints, s.TodayPnL, s.LifetimePnL,
			s.TodayVolume, formatDay(s.RiskDate), formatTime(s.LastLogin), formatTime(s.LogoutDeadline),
		}
		if err := f.SetSheetRow(accountsSheet, "A"+strconv.Itoa(i+2), &summary); err != nil {
			return err
		}
	}

	return f.Write(w)
}
