package models

// Stored field names of a memo document.
const (
	FieldMemo      = "memo"
	FieldStartDate = "startDate"
	FieldEndDate   = "endDate"
)

// Memo is a note shown to operators between two dates (inclusive).
type Memo struct {
	ID        string `json:"id"`
	Text      string `json:"memo"`
	StartDate string `json:"start_date"` // YYYY-MM-DD format
	EndDate   string `json:"end_date"`   // YYYY-MM-DD format
}

// MemoID derives the record id of a memo from its date range.
func MemoID(startDate, endDate string) string {
	return startDate + "_" + endDate
}

// Document converts the memo into its stored shape.
func (m Memo) Document() map[string]any {
	return map[string]any{
		FieldMemo:      m.Text,
		FieldStartDate: m.StartDate,
		FieldEndDate:   m.EndDate,
	}
}

// MemoFromDocument rebuilds a memo from a stored document.
func MemoFromDocument(id string, doc map[string]any) Memo {
	return Memo{
		ID:        id,
		Text:      StringField(doc, FieldMemo),
		StartDate: StringField(doc, FieldStartDate),
		EndDate:   StringField(doc, FieldEndDate),
	}
}

// ActiveOn reports whether the memo covers the given day. Dates compare
// lexically because both use the YYYY-MM-DD format.
func (m Memo) ActiveOn(day string) bool {
	return m.StartDate <= day && day <= m.EndDate
}
