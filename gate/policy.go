package gate

import "context"

// Policy decides whether subject may run action against a single row of a table.
// U is the subject type (e.g. string account ID).
type Policy[U any] interface {
	// Can returns true if subject may perform action on row.
	// row is nil when no specific row is involved (e.g. listing a table).
	Can(ctx context.Context, subject U, action Action, row any) bool
}

// PolicyFunc adapts an ordinary function to the Policy interface.
type PolicyFunc[U any] func(ctx context.Context, subject U, action Action, row any) bool

// Can calls f(ctx, subject, action, row).
func (f PolicyFunc[U]) Can(ctx context.Context, subject U, action Action, row any) bool {
	return f(ctx, subject, action, row)
}
