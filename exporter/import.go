package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmfieldworks/drillreports_backend/models"
	"github.com/mmfieldworks/drillreports_backend/utils"
	"github.com/xuri/excelize/v2"
)

// ImportResult summarizes a workbook merge.
type ImportResult struct {
	Imported    int `json:"imported"`
	Skipped     int `json:"skipped"`
	Regenerated int `json:"regenerated"`
}

// ImportWorkbook merges an exported workbook back into the local store.
// Imported data is never assumed already-synced: every record restarts as
// pending with fresh bookkeeping. Rows that duplicate an existing synced
// record by identity are skipped (synced data is authoritative), and ids
// that collide with an existing record are regenerated so unsynced work is
// never overwritten.
func ImportWorkbook(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read workbook: %w", err)
	}
	defer f.Close()

	reports, err := readReportRows(f)
	if err != nil {
		return nil, err
	}
	workers, err := readWorkerRows(f)
	if err != nil {
		return nil, err
	}
	expenses, err := readExpenseRows(f)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i := range reports {
		record := &reports[i]
		record.Workers = workers[record.LocalId]
		record.Expenses = expenses[record.LocalId]

		// Synced data is authoritative; never reintroduce it as new work.
		existing, err := models.FindSyncedByIdentity(ctx, record)
		if err != nil {
			return result, err
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		if _, err := models.GetReport(ctx, record.LocalId); err == nil {
			record.LocalId = uuid.New().String()
			for j := range record.Workers {
				record.Workers[j].ReportLocalId = record.LocalId
			}
			for j := range record.Expenses {
				record.Expenses[j].ReportLocalId = record.LocalId
			}
			result.Regenerated++
		} else if !errors.Is(err, utils.ErrorRecordNotFound) {
			return result, err
		}

		// Fresh bookkeeping: imported records always re-enter the queue.
		record.Status = models.SyncStatusPending
		record.ServerId = ""
		record.SyncAttempts = 0
		record.LastError = ""
		record.LastAttemptAt = nil
		record.SyncedAt = nil
		record.ServerData = nil
		record.ForceResubmit = false

		if err := models.SaveReport(ctx, record); err != nil {
			return result, err
		}
		result.Imported++
	}

	return result, nil
}

func readReportRows(f *excelize.File) ([]models.ReportRecord, error) {
	rows, err := f.GetRows(SheetReports)
	if err != nil {
		return nil, fmt.Errorf("missing %s sheet: %w", SheetReports, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook has no %s header row", SheetReports)
	}
	idx := headerIndex(rows[0])

	var records []models.ReportRecord
	for _, row := range rows[1:] {
		get := cellGetter(idx, row)
		localId := get("LocalId")
		if localId == "" {
			continue
		}
		reportDate, err := time.Parse(dateLayout, get("ReportDate"))
		if err != nil {
			return nil, fmt.Errorf("report %s: bad date %q", localId, get("ReportDate"))
		}

		record := models.ReportRecord{
			LocalId:                 localId,
			ReportDate:              reportDate,
			ClientName:              get("ClientName"),
			SiteLocation:            get("SiteLocation"),
			RigName:                 get("RigName"),
			StartTime:               get("StartTime"),
			EndTime:                 get("EndTime"),
			StartRotation:           atoiOrZero(get("StartRotation")),
			EndRotation:             atoiOrZero(get("EndRotation")),
			DrillRodCount:           atoiOrZero(get("DrillRodCount")),
			RodLengthM:              utils.DecimalFromString(get("RodLengthM")),
			CasingPipeCount:         atoiOrZero(get("CasingPipeCount")),
			CasingLengthM:           utils.DecimalFromString(get("CasingLengthM")),
			JobType:                 models.JobType(get("JobType")),
			MaterialsBy:             models.MaterialsProvider(get("MaterialsBy")),
			MaterialsStoreName:      get("MaterialsStoreName"),
			BalanceBroughtForward:   utils.DecimalFromString(get("BalanceBroughtForward")),
			ContractSum:             utils.DecimalFromString(get("ContractSum")),
			RigFeeCharged:           utils.DecimalFromString(get("RigFeeCharged")),
			RigFeeCollected:         utils.DecimalFromString(get("RigFeeCollected")),
			CashReceivedFromCompany: utils.DecimalFromString(get("CashReceivedFromCompany")),
			MaterialsSoldIncome:     utils.DecimalFromString(get("MaterialsSoldIncome")),
			MaterialsCost:           utils.DecimalFromString(get("MaterialsCost")),
			LoansTaken:              utils.DecimalFromString(get("LoansTaken")),
			MobileMoneyTransfer:     utils.DecimalFromString(get("MobileMoneyTransfer")),
			CashGiven:               utils.DecimalFromString(get("CashGiven")),
			BankDeposit:             utils.DecimalFromString(get("BankDeposit")),
			Remarks:                 get("Remarks"),
		}
		records = append(records, record)
	}
	return records, nil
}

func readWorkerRows(f *excelize.File) (map[string][]models.WorkerPayEntry, error) {
	out := map[string][]models.WorkerPayEntry{}
	rows, err := f.GetRows(SheetWorkerPay)
	if err != nil {
		return out, nil // sheet is optional on hand-built workbooks
	}
	if len(rows) == 0 {
		return out, nil
	}
	idx := headerIndex(rows[0])
	for _, row := range rows[1:] {
		get := cellGetter(idx, row)
		reportId := get("ReportLocalId")
		if reportId == "" {
			continue
		}
		out[reportId] = append(out[reportId], models.WorkerPayEntry{
			ReportLocalId: reportId,
			Position:      atoiOrZero(get("Position")),
			Name:          get("Name"),
			Role:          get("Role"),
			WageType:      models.WageType(get("WageType")),
			Units:         utils.DecimalFromString(get("Units")),
			Rate:          utils.DecimalFromString(get("Rate")),
			Benefits:      utils.DecimalFromString(get("Benefits")),
			LoanReclaim:   utils.DecimalFromString(get("LoanReclaim")),
			Amount:        utils.DecimalFromString(get("Amount")),
			Paid:          strings.EqualFold(get("Paid"), "true"),
		})
	}
	return out, nil
}

func readExpenseRows(f *excelize.File) (map[string][]models.ExpenseEntry, error) {
	out := map[string][]models.ExpenseEntry{}
	rows, err := f.GetRows(SheetExpenses)
	if err != nil {
		return out, nil
	}
	if len(rows) == 0 {
		return out, nil
	}
	idx := headerIndex(rows[0])
	for _, row := range rows[1:] {
		get := cellGetter(idx, row)
		reportId := get("ReportLocalId")
		if reportId == "" {
			continue
		}
		entry := models.ExpenseEntry{
			ReportLocalId: reportId,
			Position:      atoiOrZero(get("Position")),
			Description:   get("Description"),
			UnitCost:      utils.DecimalFromString(get("UnitCost")),
			Quantity:      utils.DecimalFromString(get("Quantity")),
			Amount:        utils.DecimalFromString(get("Amount")),
		}
		if v := get("CatalogId"); v != "" {
			if n, err := strconv.ParseUint(v, 10, 64); err == nil {
				id := uint(n)
				entry.CatalogId = &id
			}
		}
		out[reportId] = append(out[reportId], entry)
	}
	return out, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func cellGetter(idx map[string]int, row []string) func(string) string {
	return func(column string) string {
		i, ok := idx[column]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
}

func atoiOrZero(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
