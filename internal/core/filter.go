package core

import "strings"

// MonthAll disables the month filter.
const MonthAll = "all"

// Filter narrows the list to transactions matching both conditions: the
// query, case-insensitively, is a substring of the member name or of the
// space-joined item titles; and the date starts with the month filter
// (YYYY-MM), unless the filter is "all". An empty query matches everything,
// and a missing member name matches as the empty string. Input order is
// preserved; the input slice is never mutated.
func Filter(txs []Transaction, query, month string) []Transaction {
	query = strings.ToLower(query)
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if !matchesQuery(t, query) {
			continue
		}
		if month != MonthAll && !strings.HasPrefix(t.Date, month) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesQuery(t Transaction, loweredQuery string) bool {
	if loweredQuery == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.ReceivedFrom), loweredQuery) {
		return true
	}
	titles := make([]string, 0, len(t.Items))
	for _, item := range t.Items {
		titles = append(titles, strings.ToLower(item.Title))
	}
	return strings.Contains(strings.Join(titles, " "), loweredQuery)
}
