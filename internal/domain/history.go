package domain

// HistoryMessage is one entry of a project's messageHistory log.
// PlanDescription/Thinking entries are opaque to the core and carry no
// Plan; Action entries carry one.
type HistoryMessage struct {
	Type string    `json:"type"`
	Plan *PlanBody `json:"plan,omitempty"`
}

// PlanBody groups the file/command actions tagged with one planId.
type PlanBody struct {
	PlanID  string   `json:"planId"`
	Actions []Action `json:"actions"`
}

// Action is a single file or command operation embedded in a plan.
// Exactly one of the two payload shapes is populated, discriminated by
// Type.
type Action struct {
	Type string `json:"type"`

	// file action fields
	Path        string  `json:"path,omitempty"`
	Modified    *string `json:"modified,omitempty"`
	Original    *string `json:"original,omitempty"`
	IsNew       bool    `json:"isNew,omitempty"`
	Basename    string  `json:"basename,omitempty"`
	Dirname     string  `json:"dirname,omitempty"`
	Description string  `json:"description,omitempty"`

	// command action fields
	Command  string   `json:"command,omitempty"`
	Packages []string `json:"packages,omitempty"`
}

// IsFileAction reports whether this action is a "file" action.
func (a Action) IsFileAction() bool { return a.Type == "file" }

// IsCommandAction reports whether this action is a "command" action.
func (a Action) IsCommandAction() bool { return a.Type == "command" }

// IsCreate reports whether this file action creates a new file: either
// isNew=true or original==nil signals a create — no requirement that both
// agree.
func (a Action) IsCreate() bool {
	return a.IsNew || a.Original == nil
}
