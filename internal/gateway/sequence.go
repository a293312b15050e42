package gateway

import "sync"

// Sequencer numbers repeated calls of one logical query so a caller can
// drop responses that arrive after a newer call was issued.
type Sequencer struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[string]uint64)}
}

// Next issues the sequence number for a new call of key.
func (s *Sequencer) Next(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[key]++
	return s.latest[key]
}

// Latest reports whether seq is still the newest call issued for key.
func (s *Sequencer) Latest(key string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[key] == seq
}
