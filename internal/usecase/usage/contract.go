package usage

// BudgetReader is the read side of the provider token budget.
// *embedding.BudgetTracker satisfies it; remaining values are -1 when unlimited.
type BudgetReader interface {
	DailyLimit() int64
	MonthlyLimit() int64
	DailyUsed() int64
	MonthlyUsed() int64
	RemainingDaily() int64
	RemainingMonthly() int64
}
