package gate

// Action describes the kind of statement a subject wants to run against a table.
// The names follow the SQL verbs row-level policies are written for.
type Action string

const (
	ActionSelect Action = "select"
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the known statement kinds.
func (a Action) Valid() bool {
	switch a {
	case ActionSelect, ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}
