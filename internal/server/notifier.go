package server

import "sync"

// Notifier broadcasts change pings to subscribed listeners. Listeners
// receive an empty struct and should re-query.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
}

// NewNotifier creates a Notifier.
func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[chan struct{}]struct{})}
}

// Subscribe returns a channel that receives pings.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast pings every listener without blocking. A listener with a
// pending ping is skipped.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
