package audit

import "time"

// Filters narrow the change history. Zero values do not constrain.
type Filters struct {
	From     time.Time
	To       time.Time
	Entity   string
	EntityID string
	Action   string
	Page     int
	PageSize int
}

// Entry is one recorded mutation.
type Entry struct {
	At       time.Time
	ActorID  int64
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
}

// Code returns the record code stored with the entry, if any.
func (e Entry) Code() string {
	if e.Meta == nil {
		return ""
	}
	code, _ := e.Meta["code"].(string)
	return code
}

// Paging holds simple previous/next paging metadata.
type Paging struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result is one page of history.
type Result struct {
	Entries []Entry
	Paging  Paging
}
