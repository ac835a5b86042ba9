package models

// PendingChange is the set of changed fields of one profile submission.
// Fields holds top-level attributes, Profile holds namespaced entries.
type PendingChange struct {
	Fields  map[string]any
	Profile map[string]any
}

func (c PendingChange) Len() int {
	return len(c.Fields) + len(c.Profile)
}

func (c PendingChange) Empty() bool {
	return c.Len() == 0
}

// Clone returns a deep copy of the change.
func (c PendingChange) Clone() PendingChange {
	out := PendingChange{}
	if c.Fields != nil {
		out.Fields = make(map[string]any, len(c.Fields))
		for k, v := range c.Fields {
			out.Fields[k] = cloneValue(v)
		}
	}
	if c.Profile != nil {
		out.Profile = make(map[string]any, len(c.Profile))
		for k, v := range c.Profile {
			out.Profile[k] = cloneValue(v)
		}
	}
	return out
}

// EventType classifies a realtime change event.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// ChangeEvent is a single push notification about the watched record.
type ChangeEvent struct {
	Type EventType   `json:"eventType"`
	New  *UserRecord `json:"new,omitempty"`
	Old  *UserRecord `json:"old,omitempty"`
}

// IsUpsert reports whether the event carries a new snapshot to merge.
func (e ChangeEvent) IsUpsert() bool {
	return e.Type == EventInsert || e.Type == EventUpdate
}
