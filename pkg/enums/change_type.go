package enums

import "strings"

// ChangeType is the row-level operation carried by realtime change events.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

var changeTypes = values[ChangeType]{ChangeInsert, ChangeUpdate, ChangeDelete}

func (c ChangeType) IsValid() bool { return changeTypes.has(c) }

// ParseChangeType accepts any casing; "*" is not a change type.
func ParseChangeType(value string) (ChangeType, error) {
	return changeTypes.parse(strings.ToUpper(strings.TrimSpace(value)), "change type")
}
