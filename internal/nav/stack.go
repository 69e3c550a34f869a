// Package nav holds the screen navigation model. UIs attach to a Stack and
// render whatever Current says; the stack itself has no platform ties.
package nav

import "sync"

// Screen is one entry in the navigation stack.
type Screen struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// Stack is an explicit back-stack of screens. The root screen can never
// be popped.
type Stack struct {
	mu       sync.RWMutex
	screens  []Screen
	onChange func(current Screen, depth int)
}

// NewStack creates a stack with the given root screen.
func NewStack(root Screen) *Stack {
	return &Stack{screens: []Screen{root}}
}

// OnChange registers a callback invoked after every mutation with the new
// current screen and depth. Only one callback is held; a later call
// replaces the earlier one.
func (s *Stack) OnChange(fn func(current Screen, depth int)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Push puts a screen on top of the stack.
func (s *Stack) Push(screen Screen) {
	s.mu.Lock()
	s.screens = append(s.screens, screen)
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// Pop removes the top screen and returns it. Popping the root fails.
func (s *Stack) Pop() (Screen, bool) {
	s.mu.Lock()
	if len(s.screens) <= 1 {
		s.mu.Unlock()
		return Screen{}, false
	}
	popped := s.screens[len(s.screens)-1]
	s.screens = s.screens[:len(s.screens)-1]
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
	return popped, true
}

// Replace swaps the top screen without growing the stack.
func (s *Stack) Replace(screen Screen) {
	s.mu.Lock()
	s.screens[len(s.screens)-1] = screen
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// Reset drops everything and installs a new root.
func (s *Stack) Reset(root Screen) {
	s.mu.Lock()
	s.screens = []Screen{root}
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// Current returns the top screen.
func (s *Stack) Current() Screen {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screens[len(s.screens)-1]
}

// Depth returns how many screens are on the stack.
func (s *Stack) Depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.screens)
}

// notifyLocked captures the callback and state under the lock and returns
// a closure to run after unlocking, so callbacks can use the stack freely.
func (s *Stack) notifyLocked() func() {
	fn := s.onChange
	if fn == nil {
		return func() {}
	}
	current := s.screens[len(s.screens)-1]
	depth := len(s.screens)
	return func() { fn(current, depth) }
}
