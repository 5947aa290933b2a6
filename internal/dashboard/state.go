package dashboard

// RowState is the edit state of one list row.
//
//	Viewing -> Editing -> Saving    -> Viewing
//	                   -> Cancelled -> Viewing
type RowState int

const (
	Viewing RowState = iota
	Editing
	Saving
	Cancelled
)

func (s RowState) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Draft holds the edit inputs of a row, kept apart from the rendered record.
type Draft struct {
	Category string
	Amount   string
	Date     string
}

// Form holds the add-form inputs.
type Form struct {
	Category string
	Amount   string
	Date     string
}
