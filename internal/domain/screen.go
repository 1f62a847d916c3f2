package domain

// Action is a single pressable button on a screen.
type Action struct {
	Label    string `json:"label"`
	ActionID string `json:"actionId"`
}

// Screen describes what the anchor message should currently show.
//
// Screens are immutable once built: navigating back re-displays the stored
// value verbatim rather than rebuilding it, so back-navigation never
// re-runs content generation.
type Screen struct {
	ScreenID string            `json:"screenId"`
	Params   map[string]string `json:"params,omitempty"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Status   string            `json:"status,omitempty"`
	Actions  [][]Action        `json:"actions,omitempty"`
}

// WithNav returns a copy of the screen with a standard navigation row
// (back and main menu) appended to its actions.
func (s Screen) WithNav(canGoBack bool) Screen {
	row := []Action{}
	if canGoBack {
		row = append(row, Action{Label: "Back", ActionID: ActionBack})
	}
	row = append(row, Action{Label: "Main menu", ActionID: ActionMain})
	s.Actions = append(cloneActions(s.Actions), row)
	return s
}

func cloneActions(rows [][]Action) [][]Action {
	out := make([][]Action, len(rows))
	for i, r := range rows {
		out[i] = append([]Action(nil), r...)
	}
	return out
}

// Reserved action identifiers owned by the engine. They are intercepted
// by the dispatcher before any registered handler runs.
const (
	ActionBack = "nav_back"
	ActionMain = "nav_main"

	// ActionHideNotice dismisses an ephemeral notice message.
	ActionHideNotice = "hide_notice"

	// ActionNone marks an inert button (e.g. the page indicator).
	ActionNone = "no_action"
)
