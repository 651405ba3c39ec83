package model

// TemplateAction is a button rendered on a native notification.
type TemplateAction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
}

// Template is read-only presentation metadata referenced by id from a
// notification. Title and Body support {{var}} interpolation from the
// notification's metadata map.
type Template struct {
	ID        string           `json:"id"`
	Category  string           `json:"category"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Icon      string           `json:"icon,omitempty"`
	Color     string           `json:"color,omitempty"`
	Sound     string           `json:"sound,omitempty"`
	Vibration []int            `json:"vibration,omitempty"` // millisecond durations
	Variables []string         `json:"variables,omitempty"` // metadata keys the body may reference
	Actions   []TemplateAction `json:"actions,omitempty"`
}
