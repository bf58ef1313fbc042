package pdfqa

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/pdfqa/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains provider token usage against the configured budget.
// TokensLimit is 0 and TokensRemaining is -1 when no budget is set.
type UsageReport struct {
	Period          UsagePeriod
	PeriodStart     time.Time
	PeriodEnd       time.Time
	TokensUsed      int64
	TokensLimit     int64
	TokensRemaining int64
	Exhausted       bool
}

// Usage returns token usage for the given period.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil, nil) }()

	r := c.usageSvc.GetReport(ctx, domusage.Period(period))
	out := UsageReport{
		Period:          UsagePeriod(r.Period()),
		TokensUsed:      r.TokensUsed(),
		TokensLimit:     r.TokensLimit(),
		TokensRemaining: r.TokensRemaining(),
		Exhausted:       r.Exhausted(),
	}
	if r.PeriodStart() > 0 {
		out.PeriodStart = time.UnixMilli(r.PeriodStart()).UTC()
		out.PeriodEnd = time.UnixMilli(r.PeriodEnd()).UTC()
	}
	return out
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
