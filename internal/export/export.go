// Package export renders a user's valuations as an XLSX workbook.
package export

import (
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/cellar-valuation/internal/model"
	"github.com/sells-group/cellar-valuation/internal/reconcile"
)

// Sheet names in the exported workbook.
const (
	ValuationsSheet = "Valuations"
	SummarySheet    = "Summary"
)

var valuationHeader = []string{
	"Producer", "Wine", "Vintage", "Status", "Source",
	"Estimate", "Low", "High", "Confidence", "Fetched At",
}

// WriteValuations writes rows and the optional summary to w.
func WriteValuations(w io.Writer, rows []model.ValuationRow, sum *reconcile.Summary) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(ValuationsSheet)
	if err != nil {
		return eris.Wrap(err, "export: add valuations sheet")
	}
	addStrings(sheet.AddRow(), valuationHeader...)
	for _, r := range rows {
		writeValuation(sheet.AddRow(), r)
	}

	if sum != nil {
		ss, err := f.AddSheet(SummarySheet)
		if err != nil {
			return eris.Wrap(err, "export: add summary sheet")
		}
		writeSummary(ss, sum)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func writeValuation(row *xlsx.Row, r model.ValuationRow) {
	addStrings(row, r.ProducerName, r.WineName)
	if r.Vintage != nil {
		row.AddCell().SetInt(*r.Vintage)
	} else {
		row.AddCell().SetString("NV")
	}
	addStrings(row, string(r.Status), r.Source)
	addFloat(row, r.PriceEstimate)
	addFloat(row, r.PriceLow)
	addFloat(row, r.PriceHigh)
	addFloat(row, r.Confidence)
	if r.FetchedAt != nil {
		row.AddCell().SetString(r.FetchedAt.UTC().Format(time.RFC3339))
	} else {
		row.AddCell().SetString("")
	}
}

func writeSummary(sheet *xlsx.Sheet, sum *reconcile.Summary) {
	kv := func(label string, value float64) {
		row := sheet.AddRow()
		row.AddCell().SetString(label)
		row.AddCell().SetFloat(value)
	}
	kv("Valuations", float64(sum.Total))
	kv("With Estimate", float64(sum.WithEstimate))
	kv("Total Estimate Value", sum.TotalEstimateValue)
	kv("Total Bottles", float64(sum.TotalBottles))
	kv("Total Cost", sum.TotalCost)
	kv("Total Value", sum.TotalValue)
	kv("Gain/Loss", sum.GainLoss)
	kv("Gain/Loss %", sum.GainLossPercent)
	kv("Needing Review", float64(sum.WinesNeedingReview))
	kv("No Match", float64(sum.WinesNoMatch))

	for _, st := range []model.ValuationStatus{
		model.StatusMatched, model.StatusNeedsReview, model.StatusConfirmed,
		model.StatusManual, model.StatusNoMatch, model.StatusPending,
	} {
		kv("Status: "+string(st), float64(sum.ByStatus[st]))
	}
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addFloat(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v == nil {
		cell.SetString("")
		return
	}
	cell.SetFloat(*v)
}

// Filename returns the default export file name for userID.
func Filename(userID int64, now time.Time) string {
	return "valuations-" + strconv.FormatInt(userID, 10) + "-" + now.UTC().Format("20060102") + ".xlsx"
}
