// Package report summarizes recorded transactions: cap usage per pool and
// spend and cashback totals by month and category.
package report

import (
	"time"

	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/reward"
	"github.com/Veraticus/cashback-counter/internal/service"
	"github.com/shopspring/decimal"
)

// Pool names used in CapRow.
const (
	PoolLocalBase   = "local base"
	PoolForeignBase = "foreign base"
	PoolCategory    = "category"
)

// CapRow is the usage of one reward pool in a year.
type CapRow struct {
	Pool      string
	Category  model.Category // set for category pools
	Limit     float64
	Used      float64
	Remaining float64
	Percent   float64 // of Limit used, 0-100
	Unlimited bool
}

// MonthRow totals one month of spending.
type MonthRow struct {
	Month    time.Month
	Count    int
	Spend    float64
	Cashback float64
}

// CapUsage reports how much of each of the card's pools history has used in
// year. Both base pools are always listed; category pools only when capped.
// Usage is valued at the card's current rates.
func CapUsage(card *model.RewardCard, year int, history []model.Transaction) []CapRow {
	ledger := reward.BuildLedger(card, year, history, "")

	rows := []CapRow{
		capRow(PoolLocalBase, "", card.LocalBaseCap, ledger.UsedLocalBase),
		capRow(PoolForeignBase, "", card.ForeignBaseCap, ledger.UsedForeignBase),
	}
	for _, cat := range model.AllCategories() {
		if limit := card.CategoryCaps[cat]; limit > 0 {
			rows = append(rows, capRow(PoolCategory, cat, limit, ledger.UsedBonus[cat]))
		}
	}
	return rows
}

func capRow(pool string, cat model.Category, limit, used float64) CapRow {
	row := CapRow{
		Pool:     pool,
		Category: cat,
		Limit:    limit,
		Used:     model.RoundMoney(used),
	}
	if limit <= 0 {
		row.Unlimited = true
		return row
	}
	row.Remaining = model.RoundMoney(max(0, limit-used))
	row.Percent = min(100, used/limit*100)
	return row
}

// Monthly totals transactions dated in year by month, on the calendar of a
// card issued in issuing. All twelve months are returned, empty ones included.
func Monthly(txns []model.Transaction, year int, issuing model.Region) []MonthRow {
	loc := issuing.Location()
	spend := make([]decimal.Decimal, 12)
	cashback := make([]decimal.Decimal, 12)
	counts := make([]int, 12)

	for _, t := range txns {
		date := t.Date.In(loc)
		if date.Year() != year {
			continue
		}
		m := date.Month() - 1
		counts[m]++
		spend[m] = spend[m].Add(decimal.NewFromFloat(t.Amount))
		cashback[m] = cashback[m].Add(decimal.NewFromFloat(t.Reward))
	}

	rows := make([]MonthRow, 12)
	for i := range rows {
		rows[i] = MonthRow{
			Month:    time.Month(i + 1),
			Count:    counts[i],
			Spend:    spend[i].InexactFloat64(),
			Cashback: cashback[i].InexactFloat64(),
		}
	}
	return rows
}

// ByCategory totals transactions per category.
func ByCategory(txns []model.Transaction) map[model.Category]service.CategorySummary {
	type acc struct {
		spend, cashback decimal.Decimal
		count           int
	}
	sums := make(map[model.Category]*acc)
	for _, t := range txns {
		a, ok := sums[t.Category]
		if !ok {
			a = &acc{}
			sums[t.Category] = a
		}
		a.count++
		a.spend = a.spend.Add(decimal.NewFromFloat(t.Amount))
		a.cashback = a.cashback.Add(decimal.NewFromFloat(t.Reward))
	}

	out := make(map[model.Category]service.CategorySummary, len(sums))
	for cat, a := range sums {
		out[cat] = service.CategorySummary{
			Count:    a.count,
			Amount:   a.spend.InexactFloat64(),
			Cashback: a.cashback.InexactFloat64(),
		}
	}
	return out
}

// Totals sums every transaction.
func Totals(txns []model.Transaction) service.CategorySummary {
	spend, cashback := decimal.Zero, decimal.Zero
	for _, t := range txns {
		spend = spend.Add(decimal.NewFromFloat(t.Amount))
		cashback = cashback.Add(decimal.NewFromFloat(t.Reward))
	}
	return service.CategorySummary{
		Count:    len(txns),
		Amount:   spend.InexactFloat64(),
		Cashback: cashback.InexactFloat64(),
	}
}

// EffectiveRate is cashback earned per unit spent, or 0 with no spend.
func EffectiveRate(s service.CategorySummary) float64 {
	if s.Amount <= 0 {
		return 0
	}
	return s.Cashback / s.Amount
}
