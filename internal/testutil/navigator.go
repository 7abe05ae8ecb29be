package testutil

import "sync"

// RecordingNavigator records every path it is asked to open.
//
// Implements checkout.Navigator.
//
// Thread-safety: RecordingNavigator is safe for concurrent use.
type RecordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

// Navigate records path.
func (n *RecordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

// Paths returns the recorded paths in call order.
func (n *RecordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}
