package exporter

import (
	"context"
	"testing"
	"time"

	"github.com/mmfieldworks/drillreports_backend/config"
	"github.com/mmfieldworks/drillreports_backend/models"
	"github.com/shopspring/decimal"
)

func setupBridgeTest(t *testing.T) context.Context {
	t.Helper()
	if err := config.ConnectTestDatabase(models.MigrateLocalStore); err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return context.Background()
}

func seedFullReport(t *testing.T, ctx context.Context, site string, status models.SyncStatus) *models.ReportRecord {
	t.Helper()
	record := &models.ReportRecord{
		ReportDate:    time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		ClientName:    "Atwima Water Board",
		SiteLocation:  site,
		RigName:       "RIG-02",
		StartTime:     "08:00",
		EndTime:       "16:30",
		JobType:       models.JobTypeDirect,
		MaterialsBy:   models.MaterialsProviderCompany,
		ContractSum:   decimal.NewFromInt(1500),
		MaterialsCost: decimal.NewFromInt(300),
		Workers: []models.WorkerPayEntry{
			{Name: "Kwame", Role: "operator", WageType: models.WageTypeDaily, Units: decimal.NewFromInt(1), Rate: decimal.NewFromInt(80)},
			{Name: "Ama", Role: "assistant", WageType: models.WageTypeDaily, Units: decimal.NewFromInt(1), Rate: decimal.NewFromInt(40)},
		},
		Expenses: []models.ExpenseEntry{
			{Description: "fuel", UnitCost: decimal.NewFromInt(12), Quantity: decimal.NewFromInt(5)},
		},
	}
	if status != "" {
		record.Status = status
		if status == models.SyncStatusSynced {
			now := time.Now().UTC()
			record.SyncedAt = &now
			record.ServerId = "srv-" + site
		}
	}
	models.DeriveTotals(record)
	if err := models.SaveReport(ctx, record); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}
	return record
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := setupBridgeTest(t)
	original := seedFullReport(t, ctx, "Nkawie", "")

	f, err := ExportWorkbook(ctx)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	// A fresh store simulates the second device receiving the file.
	if err := config.ConnectTestDatabase(models.MigrateLocalStore); err != nil {
		t.Fatalf("failed to reopen test database: %v", err)
	}

	result, err := ImportWorkbook(ctx, buf)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 1 || result.Skipped != 0 || result.Regenerated != 0 {
		t.Fatalf("expected clean single import, got %+v", result)
	}

	loaded, err := models.GetReport(ctx, original.LocalId)
	if err != nil {
		t.Fatalf("imported record missing: %v", err)
	}
	if loaded.SiteLocation != "Nkawie" || loaded.ClientName != original.ClientName {
		t.Fatalf("identity fields lost: %+v", loaded)
	}
	if !loaded.ContractSum.Equal(original.ContractSum) || !loaded.MaterialsCost.Equal(original.MaterialsCost) {
		t.Fatalf("money fields lost: %s / %s", loaded.ContractSum, loaded.MaterialsCost)
	}
	if len(loaded.Workers) != 2 || len(loaded.Expenses) != 1 {
		t.Fatalf("entries lost: %d workers, %d expenses", len(loaded.Workers), len(loaded.Expenses))
	}
	if loaded.Workers[0].Name != "Kwame" || loaded.Workers[1].Name != "Ama" {
		t.Fatalf("worker order lost: %s, %s", loaded.Workers[0].Name, loaded.Workers[1].Name)
	}

	// Imported work always re-enters the queue with fresh bookkeeping.
	if loaded.Status != models.SyncStatusPending {
		t.Fatalf("imported record must be pending, got %s", loaded.Status)
	}
	if loaded.ServerId != "" || loaded.SyncAttempts != 0 || loaded.SyncedAt != nil {
		t.Fatalf("imported record must carry fresh bookkeeping: %+v", loaded)
	}

	// Totals derive identically from the round-tripped inputs.
	want := models.DeriveTotals(original)
	got := models.DeriveTotals(loaded)
	if !got.Income.Equal(want.Income) || !got.Expenses.Equal(want.Expenses) || !got.NetProfit.Equal(want.NetProfit) {
		t.Fatalf("derived totals diverged after round trip: %+v vs %+v", got, want)
	}
}

func TestImport_SkipsSyncedIdentityDuplicates(t *testing.T) {
	ctx := setupBridgeTest(t)
	seedFullReport(t, ctx, "Bekwai", "")

	f, err := ExportWorkbook(ctx)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	// The target store already holds a confirmed report for the same day
	// and site, under a different local id.
	if err := config.ConnectTestDatabase(models.MigrateLocalStore); err != nil {
		t.Fatalf("failed to reopen test database: %v", err)
	}
	seedFullReport(t, ctx, "Bekwai", models.SyncStatusSynced)

	result, err := ImportWorkbook(ctx, buf)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 0 || result.Skipped != 1 {
		t.Fatalf("synced identity duplicate must be skipped, got %+v", result)
	}

	pending, err := models.ListReports(ctx, models.SyncStatusPending)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("skip must not enqueue new work, got %d pending", len(pending))
	}
}

func TestImport_SyncedStoreRoundTripIsNoop(t *testing.T) {
	ctx := setupBridgeTest(t)
	seedFullReport(t, ctx, "Nkawie", models.SyncStatusSynced)
	seedFullReport(t, ctx, "Bekwai", models.SyncStatusSynced)

	f, err := ExportWorkbook(ctx)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	// Importing a fully confirmed store back into itself changes nothing.
	result, err := ImportWorkbook(ctx, buf)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 0 || result.Skipped != 2 || result.Regenerated != 0 {
		t.Fatalf("round trip of a synced store must be a no-op, got %+v", result)
	}

	pending, err := models.ListReports(ctx, models.SyncStatusPending)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("no new pending work may appear, got %d", len(pending))
	}
	all, err := models.ListReports(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("record count must be unchanged, got %d", len(all))
	}
}

func TestImport_RegeneratesCollidingIds(t *testing.T) {
	ctx := setupBridgeTest(t)
	original := seedFullReport(t, ctx, "Obuasi", "")

	f, err := ExportWorkbook(ctx)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	// The local id already exists but names different, unsynced work.
	if err := config.ConnectTestDatabase(models.MigrateLocalStore); err != nil {
		t.Fatalf("failed to reopen test database: %v", err)
	}
	occupant := &models.ReportRecord{
		LocalId:      original.LocalId,
		ReportDate:   time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
		ClientName:   "Other Client",
		SiteLocation: "Somewhere Else",
		JobType:      models.JobTypeSubcontract,
		MaterialsBy:  models.MaterialsProviderClient,
	}
	if err := models.SaveReport(ctx, occupant); err != nil {
		t.Fatalf("occupant save failed: %v", err)
	}

	result, err := ImportWorkbook(ctx, buf)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 1 || result.Regenerated != 1 {
		t.Fatalf("colliding id must be regenerated, got %+v", result)
	}

	// The occupant is untouched.
	kept, err := models.GetReport(ctx, original.LocalId)
	if err != nil {
		t.Fatalf("occupant missing: %v", err)
	}
	if kept.SiteLocation != "Somewhere Else" {
		t.Fatalf("existing unsynced work must never be overwritten, got %+v", kept)
	}

	// The imported copy lives under a fresh id with its entries re-pointed.
	all, err := models.ListReports(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected occupant plus imported copy, got %d records", len(all))
	}
	for i := range all {
		r := &all[i]
		if r.LocalId == original.LocalId {
			continue
		}
		if r.SiteLocation != "Obuasi" {
			t.Fatalf("imported copy lost its data: %+v", r)
		}
		if len(r.Workers) != 2 {
			t.Fatalf("imported copy lost worker entries: %d", len(r.Workers))
		}
		for j := range r.Workers {
			if r.Workers[j].ReportLocalId != r.LocalId {
				t.Fatalf("worker entry points at %s, record is %s", r.Workers[j].ReportLocalId, r.LocalId)
			}
		}
	}
}

func TestExportWorkbook_Sheets(t *testing.T) {
	ctx := setupBridgeTest(t)
	seedFullReport(t, ctx, "Nkawie", "")

	f, err := ExportWorkbook(ctx)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	for _, sheet := range []string{SheetReports, SheetWorkerPay, SheetExpenses} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Fatalf("missing sheet %s", sheet)
		}
	}

	rows, err := f.GetRows(SheetReports)
	if err != nil {
		t.Fatalf("read rows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(rows))
	}
	if rows[0][0] != "LocalId" || rows[0][2] != "ReportDate" {
		t.Fatalf("unexpected header: %v", rows[0][:3])
	}

	idx := headerIndex(rows[0])
	get := cellGetter(idx, rows[1])
	if get("SiteLocation") != "Nkawie" {
		t.Fatalf("expected site Nkawie, got %q", get("SiteLocation"))
	}
	// Totals columns are recomputed on the way out. Income is the direct
	// contract margin: 1500 - 0.
	if get("Income") != "1500" {
		t.Fatalf("expected income 1500, got %q", get("Income"))
	}
}
