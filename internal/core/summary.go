package core

import (
	"sort"
	"strings"
	"time"
)

// ChartPoint is one labelled value in a chart-ready dataset.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Summarize derives the financial summary from the full transaction list and
// the current calendar month (YYYY-MM). Monthly income and expense use a
// prefix match on the ISO date; the running balance deliberately ignores the
// month, it is the signed sum over everything ever recorded. The item count
// counts transactions, not line items.
//
// Pure function of its inputs. Callers must not cache the result across
// calls: the current-month input moves with the wall clock.
func Summarize(txs []Transaction, currentMonth string) FinancialSummary {
	var s FinancialSummary
	for _, t := range txs {
		inMonth := strings.HasPrefix(t.Date, currentMonth)
		switch t.Type {
		case TypeIncome:
			s.CurrentBalance += t.TotalAmount
			if inMonth {
				s.TotalIncome += t.TotalAmount
			}
		case TypeExpense:
			s.CurrentBalance -= t.TotalAmount
			if inMonth {
				s.TotalExpense += t.TotalAmount
			}
		}
	}
	s.TotalItemsSold = len(txs)
	return s
}

// CategoryDistribution sums item totals per category across all income
// transactions, regardless of date. Only categories that actually appear are
// emitted, labelled for display, in order of first appearance.
func CategoryDistribution(txs []Transaction, lang Language) []ChartPoint {
	sums := make(map[Category]float64)
	var order []Category
	for _, t := range txs {
		if t.Type != TypeIncome {
			continue
		}
		for _, item := range t.Items {
			if _, seen := sums[item.Category]; !seen {
				order = append(order, item.Category)
			}
			sums[item.Category] += item.Total
		}
	}
	points := make([]ChartPoint, 0, len(order))
	for _, c := range order {
		points = append(points, ChartPoint{Label: CategoryLabel(c, lang), Value: sums[c]})
	}
	return points
}

// WeeklyTrend sums income transaction totals per date, keeps the last seven
// distinct dates, and labels each with its short weekday name in ascending
// date order. ISO dates sort lexically, so a plain string sort is
// chronological.
func WeeklyTrend(txs []Transaction, lang Language) []ChartPoint {
	byDate := make(map[string]float64)
	for _, t := range txs {
		if t.Type != TypeIncome {
			continue
		}
		byDate[t.Date] += t.TotalAmount
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) > 7 {
		dates = dates[len(dates)-7:]
	}
	points := make([]ChartPoint, 0, len(dates))
	for _, d := range dates {
		points = append(points, ChartPoint{Label: weekdayLabel(d, lang), Value: byDate[d]})
	}
	return points
}

func weekdayLabel(isoDate string, lang Language) string {
	day, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return isoDate
	}
	if lang.Normalize() == LangBengali {
		return weekdayShortBN[day.Weekday()]
	}
	return weekdayShortEN[day.Weekday()]
}
