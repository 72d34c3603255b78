package ledger

import (
	"time"
)

// ImportRow 解析后的一行导入数据。Err 非空表示该行解析失败。
type ImportRow struct {
	Line      int
	Name      string
	Day       time.Time
	Entry     Entry
	RiskDate  *time.Time
	LastLogin *time.Time
	Err       error
}

// RowError 某行失败的原因
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResult 导入统计
type ImportResult struct {
	Imported  int        `json:"imported"`
	Errors    int        `json:"errors"`
	RowErrors []RowError `json:"row_errors,omitempty"`
}

// Import 逐行导入：按名称查找或创建账户后写入记录。
// 单行失败只计数，不影响其他行。
func (r *Registry) Import(rows []ImportRow) ImportResult {
	var result ImportResult

	r.mu.Lock()
	for _, row := range rows {
		if err := r.importRow(row); err != nil {
			result.Errors++
			result.RowErrors = append(result.RowErrors, RowError{Line: row.Line, Message: err.Error()})
			continue
		}
		result.Imported++
	}
	r.mu.Unlock()

	r.publish()
	return result
}

func (r *Registry) importRow(row ImportRow) error {
	if row.Err != nil {
		return row.Err
	}
	if err := row.Entry.Validate(); err != nil {
		return err
	}

	a := r.findByName(row.Name)
	if a == nil {
		a = r.create(row.Name)
		a.Balance = row.Entry.EndBalance
	}

	now := r.now()
	if _, err := a.Upsert(row.Day, row.Entry, now); err != nil {
		return err
	}
	if row.RiskDate != nil {
		d := row.RiskDate.UTC()
		a.RiskDate = &d
		a.normalizeRiskDate()
	}
	if row.LastLogin != nil {
		t := row.LastLogin.UTC()
		a.LastLogin = &t
	}
	return nil
}
