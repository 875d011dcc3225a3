package export

import (
	"context"

	"dmo/internal/core"
)

// Row is one completion log line bound for the export sheet.
type Row struct {
	Date      core.Date
	DmoName   string
	Completed bool
	Note      string
}

// Ports for outbound adapters.
type (
	// CompletionWriter appends one completion log row.
	CompletionWriter interface {
		Append(ctx context.Context, r Row) (rowRef string, err error)
	}

	// DigestWriter appends a whole daily report as a block of rows.
	DigestWriter interface {
		AppendDigest(ctx context.Context, report core.DailyReport) error
	}
)
