package importer

import "fmt"

// MalformedRowError reports an export row, or the line item on it, that could not
// be used. The rest of the batch is still imported.
type MalformedRowError struct {
	Row         int
	OrderNumber string
	Field       string
	Reason      string
}

func (e *MalformedRowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	if e.OrderNumber == "" {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("row %d (order %s): %s: %s", e.Row, e.OrderNumber, e.Field, e.Reason)
}
