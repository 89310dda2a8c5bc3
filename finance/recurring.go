package finance

import "github.com/warp/finhub/generic"

// RecurringPeriods are the month counts a recurring expense may span.
var RecurringPeriods = []int{3, 6, 12, 24, 36}

func IsRecurringPeriod(months int) bool {
	for _, p := range RecurringPeriods {
		if p == months {
			return true
		}
	}
	return false
}

// ExpandRecurring turns one submitted expense into the records to store.
//
// A recurring expense over N months becomes N copies, the i-th dated i
// months after the base date. The day is clamped to the target month, and
// always measured from the base date, so Jan 31 gives Feb 29 then Mar 31.
// Anything else, including an unsupported month count, is stored once as a
// non-recurring expense.
func ExpandRecurring(base Expense) []Expense {
	if !base.Recurring || !IsRecurringPeriod(base.RecurringMonths) {
		single := base
		single.Recurring = false
		single.RecurringMonths = 0
		return []Expense{single}
	}

	out := make([]Expense, base.RecurringMonths)
	for i := range out {
		e := base
		e.Date = generic.AddMonthsClamped(base.Date, i)
		out[i] = e
	}
	return out
}
