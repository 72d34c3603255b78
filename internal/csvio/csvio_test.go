package csvio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dushixiang/alpha/internal/ledger"
	"github.com/dushixiang/alpha/internal/xe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testNow = time.Date(2025, 6, 20, 8, 0, 0, 0, time.UTC)

func newRegistry() *ledger.Registry {
	seq := 0
	return ledger.NewRegistry(
		ledger.WithClock(func() time.Time { return testNow }),
		ledger.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
}

func TestImportIsolatesBadRow(t *testing.T) {
	input := strings.Join([]string{
		"AccountName,Date,Start,End,Vol,Profit,Deducted",
		"alpha,06/01/2025,1000,1100,1024,0,0",
		"alpha,2025-06-02,1100,1200,2048,5,1",
		"alpha,someday,1200,1300,4096,0,0",
		"beta,03/06/2025,50,60,2,0,0",
		"beta,25/06/2025,60,70,4,0,0",
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.ErrorIs(t, rows[2].Err, xe.ErrParse)
	assert.Equal(t, 4, rows[2].Line)

	r := newRegistry()
	res := r.Import(rows)
	assert.Equal(t, 4, res.Imported)
	assert.Equal(t, 1, res.Errors)

	accounts := r.Accounts()
	require.Len(t, accounts, 2)

	alpha := accounts[0]
	require.Len(t, alpha.PointsHistory, 2)
	assert.Equal(t, 12.0, alpha.PointsHistory[0].TotalPoints) // 1100 -> 2, 1024 -> 10
	assert.Equal(t, 12.0, alpha.PointsHistory[1].TotalPoints) // 1200 -> 2, 2048 -> 11, -1
	assert.Equal(t, 5.0, alpha.PointsHistory[1].Profit)
	assert.Equal(t, 1200.0, alpha.Balance)

	beta := accounts[1]
	require.Len(t, beta.PointsHistory, 2)
	assert.Equal(t, time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC), beta.PointsHistory[0].Date)
	assert.Equal(t, time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC), beta.PointsHistory[1].Date)
	assert.Equal(t, 1.0, beta.PointsHistory[0].TotalPoints)
	assert.Equal(t, 2.0, beta.PointsHistory[1].TotalPoints)
}

func TestParseCSVAliasesAndDefaults(t *testing.T) {
	input := "\ufeffName, Day, Start Balance, End_Balance, Volume, Balance, Bonus Points, Risk Date, Last Login\n" +
		"\"Main, Inc\",2025-06-01,10,20,64,150,2,2025-05-30,2025-06-01T09:30:00Z\n" +
		"\n" +
		"Other,2025-06-02,,,,,,,\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	require.NoError(t, first.Err)
	assert.Equal(t, "Main, Inc", first.Name)
	assert.Equal(t, 10.0, first.Entry.StartBalance)
	assert.Equal(t, 20.0, first.Entry.EndBalance)
	assert.Equal(t, 64.0, first.Entry.Volume)
	assert.Equal(t, 150.0, first.Entry.Balance)
	assert.Equal(t, 2.0, first.Entry.BonusPoints)
	require.NotNil(t, first.RiskDate)
	assert.Equal(t, time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC), *first.RiskDate)
	require.NotNil(t, first.LastLogin)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC), *first.LastLogin)

	second := rows[1]
	require.NoError(t, second.Err)
	assert.Equal(t, ledger.Entry{}, second.Entry)
}

func TestParseCSVRowErrors(t *testing.T) {
	input := "AccountName,Date,Start,End,Vol,Profit,Deducted\n" +
		",2025-06-01,1,1,1,0,0\n" +
		"a,,1,1,1,0,0\n" +
		"a,2025-06-01,abc,1,1,0,0\n" +
		"a,2025-06-01,1,1,-5,0,0\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Error(t, rows[0].Err)
	assert.Error(t, rows[1].Err)
	assert.Error(t, rows[2].Err)
	// 负数在写入时校验
	assert.NoError(t, rows[3].Err)

	res := newRegistry().Import(rows)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 4, res.Errors)
}

func TestParseCSVPositionalFallback(t *testing.T) {
	input := "who,when,a,b,c,d,e\nmain,2025-06-01,1,2,8,0,0\n"
	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, rows[0].Err)
	assert.Equal(t, "main", rows[0].Name)
	assert.Equal(t, 8.0, rows[0].Entry.Volume)
}

func TestParseCSVEmpty(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func seeded(t *testing.T) *ledger.Registry {
	r := newRegistry()
	a := r.AddAccount("main")
	for i := 0; i < 3; i++ {
		day := testNow.AddDate(0, 0, -3+i)
		_, err := r.Upsert(a.ID, day, ledger.Entry{StartBalance: 1000, EndBalance: 1000.5, Volume: 1024, Balance: 1000, Profit: 1})
		require.NoError(t, err)
	}
	risk := testNow.AddDate(0, 0, -10)
	r.SetRiskDate(a.ID, &risk)
	r.SetLastLogin(a.ID, time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC))
	return r
}

func TestWriteCSV(t *testing.T) {
	r := seeded(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r.Accounts()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "AccountName,Date,Start,End,Vol,Balance,Profit,Deducted,Bonus,Pts,15d Points,RiskDate,LastLogin,LogoutDeadline", lines[0])
	assert.Equal(t, "main,2025-06-17,1000,1000.5,1024,1000,1,0,0,12,12,2025-06-10,2025-06-18T12:00:00Z,2025-06-23T12:00:00Z", lines[1])
	assert.True(t, strings.HasPrefix(lines[3], "main,2025-06-19,"))
	assert.Contains(t, lines[3], ",12,36,")
}

func TestCSVRoundTrip(t *testing.T) {
	src := seeded(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, src.Accounts()))

	rows, err := ParseCSV(&buf)
	require.NoError(t, err)

	dst := newRegistry()
	res := dst.Import(rows)
	assert.Equal(t, 3, res.Imported)
	assert.Zero(t, res.Errors)

	want := src.Accounts()[0]
	got := dst.Accounts()[0]
	require.Len(t, got.PointsHistory, len(want.PointsHistory))
	for i := range want.PointsHistory {
		w, g := want.PointsHistory[i], got.PointsHistory[i]
		assert.Equal(t, w.Date, g.Date)
		assert.Equal(t, w.TotalPoints, g.TotalPoints)
		assert.Equal(t, w.PnL(), g.PnL())
	}
	assert.Equal(t, *want.RiskDate, *got.RiskDate)
	assert.Equal(t, *want.LastLogin, *got.LastLogin)
}

func TestWriteXLSX(t *testing.T) {
	r := seeded(t)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, r.Accounts(), testNow))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	records, err := f.GetRows(recordsSheet)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "AccountName", records[0][0])
	assert.Equal(t, "2025-06-17", records[1][1])

	accounts, err := f.GetRows(accountsSheet)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "main", accounts[1][0])
}
