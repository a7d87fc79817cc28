package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ReportTotals is the full derived financial block for one report. Every
// value is recomputable from the record's core fields; nothing here is
// independently authoritative.
type ReportTotals struct {
	Income            decimal.Decimal `json:"income"`
	Expenses          decimal.Decimal `json:"expenses"`
	TotalWages        decimal.Decimal `json:"total_wages"`
	MiscExpenses      decimal.Decimal `json:"misc_expenses"`
	NetProfit         decimal.Decimal `json:"net_profit"`
	NewIncomeToday    decimal.Decimal `json:"new_income_today"`
	CashBeforeBanking decimal.Decimal `json:"cash_before_banking"`
	TotalBanked       decimal.Decimal `json:"total_banked"`
	DayBalance        decimal.Decimal `json:"day_balance"`
	OutstandingRigFee decimal.Decimal `json:"outstanding_rig_fee"`
	TotalDebt         decimal.Decimal `json:"total_debt"`

	DurationHours      decimal.Decimal `json:"duration_hours"`
	RotationDelta      int             `json:"rotation_delta"`
	TotalDepthM        decimal.Decimal `json:"total_depth_m"`
	ConstructionDepthM decimal.Decimal `json:"construction_depth_m"`
}

// DeriveTotals maps a raw report to its computed totals. It is pure and
// deterministic: the same record always produces the same totals, it never
// mutates its input beyond the per-entry Amount fields it is defined to
// fill, and it never fails - malformed or missing numerics are zero.
// Every published figure is rounded to 2 decimal places.
func DeriveTotals(record *ReportRecord) ReportTotals {
	var t ReportTotals

	// Worker pay: amount = max(0, units*rate + benefits - loan reclaim).
	totalWages := decimal.Zero
	for i := range record.Workers {
		w := &record.Workers[i]
		amount := w.Units.Mul(w.Rate).Add(w.Benefits).Sub(w.LoanReclaim)
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		w.Amount = amount.Round(2)
		totalWages = totalWages.Add(w.Amount)
	}
	t.TotalWages = totalWages.Round(2)

	// Expense lines: amount = unit cost * quantity.
	misc := decimal.Zero
	for i := range record.Expenses {
		e := &record.Expenses[i]
		e.Amount = e.UnitCost.Mul(e.Quantity).Round(2)
		misc = misc.Add(e.Amount)
	}
	t.MiscExpenses = misc.Round(2)

	// Income. The contract margin only exists on direct jobs.
	income := record.BalanceBroughtForward
	if record.JobType == JobTypeDirect {
		income = income.Add(record.ContractSum.Sub(record.RigFeeCharged))
	}
	income = income.
		Add(record.RigFeeCollected).
		Add(record.CashReceivedFromCompany).
		Add(record.MaterialsSoldIncome)
	t.Income = income.Round(2)

	// Expenses. Materials cost is excluded only on subcontract jobs where
	// the client provided the materials; every other combination,
	// including unrecognized vocabulary, takes the cost-included branch.
	expenses := decimal.Zero
	if materialsCostIncluded(record.JobType, record.MaterialsBy) {
		expenses = expenses.Add(record.MaterialsCost)
	}
	expenses = expenses.
		Add(t.TotalWages).
		Add(record.LoansTaken).
		Add(t.MiscExpenses)
	t.Expenses = expenses.Round(2)

	t.NetProfit = t.Income.Sub(t.Expenses).Round(2)

	// Cash position chain.
	t.NewIncomeToday = t.Income.Sub(record.BalanceBroughtForward).Round(2)
	t.CashBeforeBanking = record.BalanceBroughtForward.Add(t.NewIncomeToday).Sub(t.Expenses).Round(2)
	t.TotalBanked = record.MobileMoneyTransfer.Add(record.CashGiven).Add(record.BankDeposit).Round(2)
	t.DayBalance = t.CashBeforeBanking.Sub(t.TotalBanked).Round(2)

	// Outstanding amounts.
	outstanding := record.RigFeeCharged.Sub(record.RigFeeCollected)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	t.OutstandingRigFee = outstanding.Round(2)
	t.TotalDebt = t.OutstandingRigFee.Add(record.LoansTaken).Round(2)

	// Operational metrics.
	t.DurationHours = durationHours(record.StartTime, record.EndTime)
	t.RotationDelta = record.EndRotation - record.StartRotation
	t.TotalDepthM = decimal.NewFromInt(int64(record.DrillRodCount)).Mul(record.RodLengthM).Round(2)
	t.ConstructionDepthM = decimal.NewFromInt(int64(record.CasingPipeCount)).Mul(record.CasingLengthM).Round(2)

	return t
}

// materialsCostIncluded isolates the cost-inclusion rule. Store-sourced
// materials are treated like company-sourced: cash left the operation, the
// cost counts.
func materialsCostIncluded(job JobType, provider MaterialsProvider) bool {
	if job == JobTypeSubcontract && provider == MaterialsProviderClient {
		return false
	}
	return true
}

// durationHours parses "HH:MM" endpoints and returns the elapsed hours
// rounded to 2 decimals. An end before the start is taken as crossing
// midnight. Malformed inputs yield zero.
func durationHours(start, end string) decimal.Decimal {
	sm, ok1 := parseClock(start)
	em, ok2 := parseClock(end)
	if !ok1 || !ok2 {
		return decimal.Zero
	}
	minutes := em - sm
	if minutes < 0 {
		minutes += 24 * 60
	}
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}

func parseClock(v string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(v), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, ok1 := atoiSafe(parts[0])
	m, ok2 := atoiSafe(parts[1])
	if !ok1 || !ok2 || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func atoiSafe(v string) (int, bool) {
	n := 0
	if v == "" {
		return 0, false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
