// Package sheet models the bottom sheet a checkout is presented on.
package sheet

import "sync"

// Sheet is a presentation surface with a title, a body and a visibility flag.
// Setters are last-write-wins; show and hide are idempotent. Only a user
// dismissal of a visible sheet fires the dismiss handler.
type Sheet struct {
	mu        sync.Mutex
	visible   bool
	title     string
	content   string
	onDismiss func()
}

// New returns a hidden, empty sheet.
func New() *Sheet {
	return &Sheet{}
}

// SetVisible shows or hides the sheet and reports whether anything changed.
func (s *Sheet) SetVisible(visible bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visible == visible {
		return false
	}
	s.visible = visible
	return true
}

// SetTitle sets the sheet title.
func (s *Sheet) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

// SetContent sets the sheet body.
func (s *Sheet) SetContent(content string) {
	s.mu.Lock()
	s.content = content
	s.mu.Unlock()
}

// OnDismiss replaces the dismiss handler. A nil handler clears it.
func (s *Sheet) OnDismiss(fn func()) {
	s.mu.Lock()
	s.onDismiss = fn
	s.mu.Unlock()
}

// Dismiss hides a visible sheet on the user's behalf and fires the dismiss
// handler. It does nothing when the sheet is already hidden.
func (s *Sheet) Dismiss() bool {
	s.mu.Lock()
	if !s.visible {
		s.mu.Unlock()
		return false
	}
	s.visible = false
	fn := s.onDismiss
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

func (s *Sheet) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *Sheet) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *Sheet) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}
