package exporter

import (
	"context"
	"fmt"

	"github.com/mmfieldworks/drillreports_backend/models"
	"github.com/xuri/excelize/v2"
)

const (
	SheetReports   = "Reports"
	SheetWorkerPay = "WorkerPay"
	SheetExpenses  = "Expenses"

	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04:05"
)

// The fixed, documented column sets. Sheets are joined by the report's
// local id.
var reportColumns = []string{
	"LocalId", "ServerId", "ReportDate", "ClientName", "SiteLocation", "RigName",
	"StartTime", "EndTime", "StartRotation", "EndRotation",
	"DrillRodCount", "RodLengthM", "CasingPipeCount", "CasingLengthM",
	"JobType", "MaterialsBy", "MaterialsStoreName",
	"BalanceBroughtForward", "ContractSum", "RigFeeCharged", "RigFeeCollected",
	"CashReceivedFromCompany", "MaterialsSoldIncome", "MaterialsCost", "LoansTaken",
	"MobileMoneyTransfer", "CashGiven", "BankDeposit", "Remarks",
	"Income", "Expenses", "TotalWages", "NetProfit", "DayBalance",
	"OutstandingRigFee", "TotalDebt",
	"Status", "SyncAttempts", "LastError", "SyncedAt", "CreatedAt",
}

var workerColumns = []string{
	"ReportLocalId", "Position", "Name", "Role", "WageType",
	"Units", "Rate", "Benefits", "LoanReclaim", "Amount", "Paid",
}

var expenseColumns = []string{
	"ReportLocalId", "Position", "Description", "UnitCost", "Quantity", "Amount", "CatalogId",
}

// ExportWorkbook serializes the full local record store into a portable
// workbook: one sheet per entity type, every report row carrying its
// recomputed totals.
func ExportWorkbook(ctx context.Context) (*excelize.File, error) {
	records, err := models.ListReports(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetReports); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetWorkerPay); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetExpenses); err != nil {
		return nil, err
	}

	if err := writeHeader(f, SheetReports, reportColumns); err != nil {
		return nil, err
	}
	if err := writeHeader(f, SheetWorkerPay, workerColumns); err != nil {
		return nil, err
	}
	if err := writeHeader(f, SheetExpenses, expenseColumns); err != nil {
		return nil, err
	}

	reportRow := 2
	workerRow := 2
	expenseRow := 2
	for i := range records {
		r := &records[i]
		totals := models.DeriveTotals(r)

		syncedAt := ""
		if r.SyncedAt != nil {
			syncedAt = r.SyncedAt.UTC().Format(timeLayout)
		}
		values := []interface{}{
			r.LocalId, r.ServerId, r.ReportDate.Format(dateLayout), r.ClientName, r.SiteLocation, r.RigName,
			r.StartTime, r.EndTime, r.StartRotation, r.EndRotation,
			r.DrillRodCount, r.RodLengthM.String(), r.CasingPipeCount, r.CasingLengthM.String(),
			string(r.JobType), string(r.MaterialsBy), r.MaterialsStoreName,
			r.BalanceBroughtForward.String(), r.ContractSum.String(), r.RigFeeCharged.String(), r.RigFeeCollected.String(),
			r.CashReceivedFromCompany.String(), r.MaterialsSoldIncome.String(), r.MaterialsCost.String(), r.LoansTaken.String(),
			r.MobileMoneyTransfer.String(), r.CashGiven.String(), r.BankDeposit.String(), r.Remarks,
			totals.Income.String(), totals.Expenses.String(), totals.TotalWages.String(), totals.NetProfit.String(), totals.DayBalance.String(),
			totals.OutstandingRigFee.String(), totals.TotalDebt.String(),
			string(r.Status), r.SyncAttempts, r.LastError, syncedAt, r.CreatedAt.UTC().Format(timeLayout),
		}
		if err := writeRow(f, SheetReports, reportRow, values); err != nil {
			return nil, err
		}
		reportRow++

		for j := range r.Workers {
			w := &r.Workers[j]
			wv := []interface{}{
				r.LocalId, w.Position, w.Name, w.Role, string(w.WageType),
				w.Units.String(), w.Rate.String(), w.Benefits.String(), w.LoanReclaim.String(), w.Amount.String(), w.Paid,
			}
			if err := writeRow(f, SheetWorkerPay, workerRow, wv); err != nil {
				return nil, err
			}
			workerRow++
		}

		for j := range r.Expenses {
			e := &r.Expenses[j]
			catalog := ""
			if e.CatalogId != nil {
				catalog = fmt.Sprint(*e.CatalogId)
			}
			ev := []interface{}{
				r.LocalId, e.Position, e.Description, e.UnitCost.String(), e.Quantity.String(), e.Amount.String(), catalog,
			}
			if err := writeRow(f, SheetExpenses, expenseRow, ev); err != nil {
				return nil, err
			}
			expenseRow++
		}
	}

	return f, nil
}

func writeHeader(f *excelize.File, sheet string, columns []string) error {
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	return writeRow(f, sheet, 1, header)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
