package anchor

import "github.com/soyeahso/teo/internal/domain"

// DefaultHistoryDepth bounds the back-stack. Oldest entries are dropped
// on overflow.
const DefaultHistoryDepth = 10

// Navigator implements push/pop navigation over a session's history
// stack. History holds fully-formed screens, not screen IDs, so "back"
// is O(1) and never re-executes content generation.
type Navigator struct {
	depth int
}

// NewNavigator creates a navigator with the given history depth
// (DefaultHistoryDepth if depth <= 0).
func NewNavigator(depth int) *Navigator {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &Navigator{depth: depth}
}

// Show records screen as the session's current screen, pushing the
// previous current screen onto the history stack.
func (n *Navigator) Show(sess *domain.Session, screen domain.Screen) {
	if sess.Current != nil {
		sess.History = append(sess.History, *sess.Current)
		if len(sess.History) > n.depth {
			sess.History = sess.History[len(sess.History)-n.depth:]
		}
	}
	sess.Current = &screen
}

// Peek returns the screen "back" would restore, without mutating state.
// Nil means the stack is empty and the caller should fall back to the
// root screen.
func (n *Navigator) Peek(sess *domain.Session) *domain.Screen {
	if len(sess.History) == 0 {
		return nil
	}
	top := sess.History[len(sess.History)-1]
	return &top
}

// Back pops the top of the history stack and makes it current. Returns
// nil without mutating when the stack is empty.
func (n *Navigator) Back(sess *domain.Session) *domain.Screen {
	if len(sess.History) == 0 {
		return nil
	}
	top := sess.History[len(sess.History)-1]
	sess.History = sess.History[:len(sess.History)-1]
	sess.Current = &top
	return &top
}

// ResetToRoot clears the history stack entirely and makes root current.
// Used by main-menu actions so the back-stack never grows across
// unrelated feature areas.
func (n *Navigator) ResetToRoot(sess *domain.Session, root domain.Screen) {
	sess.History = nil
	sess.Current = &root
}
