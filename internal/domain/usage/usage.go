package usage

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod maps a query value to a Period. Empty means total.
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case PeriodDay, PeriodMonth, PeriodTotal:
		return Period(s), true
	case "":
		return PeriodTotal, true
	}
	return "", false
}

// Report is the provider token usage for one period.
// A zero limit means the budget is unlimited.
type Report struct {
	period          Period
	periodStart     int64 // unix millis
	periodEnd       int64 // unix millis
	tokensUsed      int64
	tokensLimit     int64
	tokensRemaining int64
}

// NewReport creates a usage report.
func NewReport(period Period, start, end, used, limit, remaining int64) Report {
	return Report{
		period:          period,
		periodStart:     start,
		periodEnd:       end,
		tokensUsed:      used,
		tokensLimit:     limit,
		tokensRemaining: remaining,
	}
}

// Period returns the aggregation granularity.
func (r Report) Period() Period { return r.period }

// PeriodStart returns the period start (unix millis).
func (r Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end (unix millis); the budget resets then.
func (r Report) PeriodEnd() int64 { return r.periodEnd }

// TokensUsed returns tokens consumed in the period.
func (r Report) TokensUsed() int64 { return r.tokensUsed }

// TokensLimit returns the cap, 0 if unlimited.
func (r Report) TokensLimit() int64 { return r.tokensLimit }

// TokensRemaining returns tokens left, -1 if unlimited.
func (r Report) TokensRemaining() int64 { return r.tokensRemaining }

// Exhausted reports whether a limited budget is spent.
func (r Report) Exhausted() bool { return r.tokensLimit > 0 && r.tokensRemaining <= 0 }
