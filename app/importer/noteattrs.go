package importer

import (
	"strings"
	"time"

	"github.com/lavega/order-pipeline/models"
)

// Note attribute keys understood by ParseNoteAttributes, lower case.
const (
	NoteKeyDeliveryDate = "fecha de entrega"
	NoteKeyCommune      = "comuna de entrega"
)

var noteDateLayouts = []string{models.DateLayout, "02/01/2006", "02-01-2006"}

// NoteAttributes is the delivery metadata carried in the export's note attributes cell.
type NoteAttributes struct {
	DeliveryDate *time.Time
	Commune      string
	// InvalidDate holds a delivery date value that could not be parsed.
	InvalidDate string
}

// ParseNoteAttributes reads "key: value" pairs separated by newlines or semicolons.
// Keys are compared case-insensitively; unknown keys and pairs without a colon are
// ignored. Only the first colon separates key from value.
func ParseNoteAttributes(raw string) NoteAttributes {
	var attrs NoteAttributes

	pairs := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ';'
	})
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case NoteKeyDeliveryDate:
			if value == "" {
				continue
			}
			if d, ok := parseNoteDate(value); ok {
				attrs.DeliveryDate = &d
				attrs.InvalidDate = ""
			} else if attrs.DeliveryDate == nil {
				attrs.InvalidDate = value
			}
		case NoteKeyCommune:
			if value != "" {
				attrs.Commune = value
			}
		}
	}
	return attrs
}

// parseNoteDate accepts the date as the first word of value, so annotations such as
// "2024-05-01 (miércoles)" still parse.
func parseNoteDate(value string) (time.Time, bool) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return time.Time{}, false
	}
	for _, layout := range noteDateLayouts {
		if d, err := time.ParseInLocation(layout, fields[0], time.UTC); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
