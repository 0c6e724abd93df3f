package sheets

import "context"

// Ports for outbound adapters.
type (
	// RowAppender appends one row of cell values to a named sheet and
	// returns a reference to where it landed.
	RowAppender interface {
		AppendRow(ctx context.Context, sheetName string, values []any) (rowRef string, err error)
	}
)
