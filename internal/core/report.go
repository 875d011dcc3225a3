package core

// DmoDailyStatus is one DMO's entry in a daily report.
type DmoDailyStatus struct {
	Dmo        Dmo      `json:"dmo"`
	Completed  bool     `json:"completed"`
	Note       *string  `json:"note"`
	Activities []string `json:"activities"`
}

// DailyReport covers every active DMO for a single date.
type DailyReport struct {
	Date Date             `json:"date"`
	Dmos []DmoDailyStatus `json:"dmos"`
}

// DayCompletion is the per-day status line inside a monthly report.
type DayCompletion struct {
	Date      Date    `json:"date"`
	Completed bool    `json:"completed"`
	Note      *string `json:"note,omitempty"`
}

// MonthSummary aggregates a month of completions for one DMO.
type MonthSummary struct {
	TotalDays      int     `json:"total_days"`
	CompletedDays  int     `json:"completed_days"`
	CompletionRate float64 `json:"completion_rate"`
	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
	MissedDays     []Date  `json:"missed_days"`
}

// MonthlyReport is the full month view for one DMO.
type MonthlyReport struct {
	Dmo     Dmo             `json:"dmo"`
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Days    []DayCompletion `json:"days"`
	Summary MonthSummary    `json:"summary"`
}

// DmoSummary aggregates an arbitrary inclusive date range for one DMO.
type DmoSummary struct {
	Dmo            Dmo     `json:"dmo"`
	StartDate      Date    `json:"start_date"`
	EndDate        Date    `json:"end_date"`
	TotalDays      int     `json:"total_days"`
	CompletedDays  int     `json:"completed_days"`
	CompletionRate float64 `json:"completion_rate"`
	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
}
