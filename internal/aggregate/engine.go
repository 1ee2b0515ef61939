// Package aggregate computes the derived figures the dashboard and
// compensation views display. Every function is a pure computation over an
// in-memory snapshot of the record collections: no mutation, no I/O. The
// only error any of them can return is a malformed period identifier,
// which indicates a programming or data error rather than a user-facing
// condition.
package aggregate

import (
	"math"
	"sort"
	"time"

	"finboard/internal/core"
)

// Snapshot is a consistent view of the record collections at one moment.
// Aggregations never observe partial updates within a single pass.
type Snapshot struct {
	Companies     []core.Company
	Incomes       []core.Income
	Expenses      []core.Expense
	Subscriptions []core.Subscription
}

// Comparison relates the current month's expected income to the previous
// month's actual recorded total. The expected-vs-actual asymmetry is
// long-standing product behavior, kept as is.
type Comparison struct {
	Diff       int64   `json:"diff"`
	Percentage float64 `json:"percentage"`
	Positive   bool    `json:"positive"`
}

// TrendPoint is one month in the six-month income series.
type TrendPoint struct {
	Month   core.MonthPeriod `json:"month"`
	Label   string           `json:"label"`
	Amount  int64            `json:"amount"`
	Current bool             `json:"current"`
}

// CompanyBreakdown sums one company's incomes for the displayed month.
type CompanyBreakdown struct {
	CompanyID int64  `json:"companyId"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Total     int64  `json:"total"`
	Received  int64  `json:"received"`
	Pending   int64  `json:"pending"`
}

// CategoryTotal sums spending for one category over a date range.
type CategoryTotal struct {
	Category   string  `json:"category"`
	Amount     int64   `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// SubscriptionStats summarizes the active subscriptions.
type SubscriptionStats struct {
	MonthlyTotal int64 `json:"monthlyTotal"`
	ActiveCount  int   `json:"activeCount"`
}

// UpcomingCharge is an active subscription billing within the next seven
// days.
type UpcomingCharge struct {
	SubscriptionID int64     `json:"subscriptionId"`
	Name           string    `json:"name"`
	Amount         int64     `json:"amount"`
	Category       string    `json:"category"`
	Color          string    `json:"color"`
	BillingDay     int       `json:"billingDay"`
	EffectiveDay   int       `json:"effectiveDay"`
	DueDate        time.Time `json:"dueDate"`
}

// Overview is the full dashboard payload for one month.
type Overview struct {
	Month         core.MonthPeriod   `json:"month"`
	Expected      int64              `json:"expected"`
	Received      int64              `json:"received"`
	Spending      int64              `json:"spending"`
	Progress      float64            `json:"progress"`
	NetSavings    int64              `json:"netSavings"`
	Comparison    *Comparison        `json:"comparison,omitempty"`
	Trend         []TrendPoint       `json:"trend"`
	Companies     []CompanyBreakdown `json:"companies"`
	Categories    []CategoryTotal    `json:"categories"`
	Subscriptions SubscriptionStats  `json:"subscriptions"`
	Upcoming      []UpcomingCharge   `json:"upcoming"`
}

// monthMembership builds the income filter for a month: an explicit
// payment date wins, then week-period overlap, then exact month match.
func monthMembership(month core.MonthPeriod) (func(core.Income) bool, error) {
	start, end, err := core.MonthRange(month)
	if err != nil {
		return nil, err
	}
	weeks, err := core.WeeksOverlapping(month)
	if err != nil {
		return nil, err
	}
	return func(in core.Income) bool {
		if in.PaymentDate != nil {
			d := dateOnly(*in.PaymentDate)
			return !d.Before(start) && !d.After(end)
		}
		if core.IsWeekPeriod(in.Period) {
			return weeks.Contains(core.WeekPeriod(in.Period))
		}
		return in.Period == string(month)
	}, nil
}

// MonthlyIncomes returns the incomes belonging to a month under the
// membership rules above.
func MonthlyIncomes(incomes []core.Income, month core.MonthPeriod) ([]core.Income, error) {
	belongs, err := monthMembership(month)
	if err != nil {
		return nil, err
	}
	var out []core.Income
	for _, in := range incomes {
		if belongs(in) {
			out = append(out, in)
		}
	}
	return out, nil
}

// ExpectedTotal projects the month's income from company settings alone:
// monthly companies contribute their amount once, weekly companies once
// per overlapping week. Recorded incomes do not enter into it.
func ExpectedTotal(companies []core.Company, month core.MonthPeriod) (int64, error) {
	weeks, err := core.WeeksOverlapping(month)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, c := range companies {
		if c.PaymentType == core.Weekly {
			total += c.ExpectedAmount * int64(weeks.Len())
		} else {
			total += c.ExpectedAmount
		}
	}
	return total, nil
}

// ReceivedTotal sums the month's incomes whose status is received.
func ReceivedTotal(incomes []core.Income, month core.MonthPeriod) (int64, error) {
	monthly, err := MonthlyIncomes(incomes, month)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, in := range monthly {
		if in.Status == core.StatusReceived {
			total += in.Amount
		}
	}
	return total, nil
}

// Progress is the received share of expected income as a percentage.
// Zero expected yields exactly zero, never NaN.
func Progress(received, expected int64) float64 {
	if expected <= 0 {
		return 0
	}
	return float64(received) / float64(expected) * 100
}

// MonthComparison compares the month's expected total against the
// previous month's actual recorded income, any status. Returns nil when
// the previous month recorded nothing, since a percentage change from
// zero is undefined.
func MonthComparison(companies []core.Company, incomes []core.Income, month core.MonthPeriod) (*Comparison, error) {
	prev, err := core.NavigateMonth(month, core.Prev)
	if err != nil {
		return nil, err
	}
	prevIncomes, err := MonthlyIncomes(incomes, prev)
	if err != nil {
		return nil, err
	}
	var prevTotal int64
	for _, in := range prevIncomes {
		prevTotal += in.Amount
	}
	if prevTotal == 0 {
		return nil, nil
	}
	expected, err := ExpectedTotal(companies, month)
	if err != nil {
		return nil, err
	}
	diff := expected - prevTotal
	pct := math.Round(float64(diff)/float64(prevTotal)*1000) / 10
	return &Comparison{Diff: diff, Percentage: pct, Positive: diff >= 0}, nil
}

// TrendSeries computes total recorded income, regardless of status, for
// the given month and the five preceding it, oldest first. The given
// month's point is tagged as current.
func TrendSeries(incomes []core.Income, month core.MonthPeriod) ([]TrendPoint, error) {
	anchor, err := core.ParseMonthPeriod(month)
	if err != nil {
		return nil, err
	}
	points := make([]TrendPoint, 0, 6)
	for i := 5; i >= 0; i-- {
		m := anchor.AddDate(0, -i, 0)
		p := core.MonthPeriodOf(m)
		monthly, err := MonthlyIncomes(incomes, p)
		if err != nil {
			return nil, err
		}
		var total int64
		for _, in := range monthly {
			total += in.Amount
		}
		points = append(points, TrendPoint{
			Month:   p,
			Label:   m.Format("Jan"),
			Amount:  total,
			Current: p == month,
		})
	}
	return points, nil
}

// BreakdownByCompany sums each company's month incomes; companies with no
// recorded income for the month are omitted.
func BreakdownByCompany(companies []core.Company, incomes []core.Income, month core.MonthPeriod) ([]CompanyBreakdown, error) {
	monthly, err := MonthlyIncomes(incomes, month)
	if err != nil {
		return nil, err
	}
	var out []CompanyBreakdown
	for _, c := range companies {
		var total, received int64
		for _, in := range monthly {
			if in.CompanyID != c.ID {
				continue
			}
			total += in.Amount
			if in.Status == core.StatusReceived {
				received += in.Amount
			}
		}
		if total == 0 {
			continue
		}
		out = append(out, CompanyBreakdown{
			CompanyID: c.ID,
			Name:      c.Name,
			Color:     c.Color,
			Total:     total,
			Received:  received,
			Pending:   total - received,
		})
	}
	return out, nil
}

// SpendingTotal sums expenses dated within the inclusive range.
func SpendingTotal(expenses []core.Expense, start, end time.Time) int64 {
	start, end = dateOnly(start), dateOnly(end)
	var total int64
	for _, e := range expenses {
		d := dateOnly(e.Date)
		if !d.Before(start) && !d.After(end) {
			total += e.Amount
		}
	}
	return total
}

// SpendingByCategory sums expenses per category over the inclusive range
// and returns categories sorted by amount, largest first, each with its
// share of the range total.
func SpendingByCategory(expenses []core.Expense, start, end time.Time) []CategoryTotal {
	start, end = dateOnly(start), dateOnly(end)
	sums := make(map[string]int64)
	var total int64
	for _, e := range expenses {
		d := dateOnly(e.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		sums[e.Category] += e.Amount
		total += e.Amount
	}
	out := make([]CategoryTotal, 0, len(sums))
	for cat, amount := range sums {
		pct := 0.0
		if total > 0 {
			pct = float64(amount) / float64(total) * 100
		}
		out = append(out, CategoryTotal{Category: cat, Amount: amount, Percentage: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ActiveSubscriptionStats totals the active subscriptions' monthly cost.
func ActiveSubscriptionStats(subs []core.Subscription) SubscriptionStats {
	var stats SubscriptionStats
	for _, s := range subs {
		if s.IsActive {
			stats.MonthlyTotal += s.Amount
			stats.ActiveCount++
		}
	}
	return stats
}

// UpcomingCharges lists active subscriptions whose charge date for the
// current month falls within the next seven days, today inclusive. The
// window is computed with real calendar dates, so a billing day early in
// the next month never wraps back into the current window. Results are
// sorted by billing day and capped at five.
func UpcomingCharges(subs []core.Subscription, today time.Time) []UpcomingCharge {
	t := dateOnly(today)
	daysInMonth := core.DaysInMonth(t)
	windowEnd := t.AddDate(0, 0, 6)

	var out []UpcomingCharge
	for _, s := range subs {
		if !s.IsActive {
			continue
		}
		day := s.BillingDay
		if day > daysInMonth {
			day = daysInMonth
		}
		due := time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, time.UTC)
		if due.Before(t) || due.After(windowEnd) {
			continue
		}
		out = append(out, UpcomingCharge{
			SubscriptionID: s.ID,
			Name:           s.Name,
			Amount:         s.Amount,
			Category:       s.Category,
			Color:          s.Color,
			BillingDay:     s.BillingDay,
			EffectiveDay:   day,
			DueDate:        due,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BillingDay < out[j].BillingDay })
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// BuildOverview composes the complete dashboard payload for one month.
// The reference date drives the subscription lookahead only.
func BuildOverview(s Snapshot, month core.MonthPeriod, today time.Time) (Overview, error) {
	start, end, err := core.MonthRange(month)
	if err != nil {
		return Overview{}, err
	}
	expected, err := ExpectedTotal(s.Companies, month)
	if err != nil {
		return Overview{}, err
	}
	received, err := ReceivedTotal(s.Incomes, month)
	if err != nil {
		return Overview{}, err
	}
	comparison, err := MonthComparison(s.Companies, s.Incomes, month)
	if err != nil {
		return Overview{}, err
	}
	trend, err := TrendSeries(s.Incomes, month)
	if err != nil {
		return Overview{}, err
	}
	breakdown, err := BreakdownByCompany(s.Companies, s.Incomes, month)
	if err != nil {
		return Overview{}, err
	}
	spending := SpendingTotal(s.Expenses, start, end)

	return Overview{
		Month:         month,
		Expected:      expected,
		Received:      received,
		Spending:      spending,
		Progress:      Progress(received, expected),
		NetSavings:    received - spending,
		Comparison:    comparison,
		Trend:         trend,
		Companies:     breakdown,
		Categories:    SpendingByCategory(s.Expenses, start, end),
		Subscriptions: ActiveSubscriptionStats(s.Subscriptions),
		Upcoming:      UpcomingCharges(s.Subscriptions, today),
	}, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
