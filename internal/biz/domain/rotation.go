package domain

import "sync"

// RotationState tracks which (API key, model) pair the AI extractor is
// currently using and which pairs have been exhausted. One instance is
// owned by the extractor for the lifetime of a run and is shared by every
// channel worker, so all transitions are guarded by a mutex; exhaustion
// converges monotonically toward Disabled and never oscillates.
type RotationState struct {
	mu sync.Mutex

	keys   []string
	models []string

	keyIdx   int
	modelIdx int

	exhaustedModels map[int]bool // reset whenever the key rotates
	exhaustedKeys   map[int]bool // monotonic for the run
	disabled        bool
}

// NewRotationState creates rotation state over the given ordered keys and
// models. With no keys or no models the state starts disabled.
func NewRotationState(keys, models []string) *RotationState {
	return &RotationState{
		keys:            keys,
		models:          models,
		exhaustedModels: make(map[int]bool),
		exhaustedKeys:   make(map[int]bool),
		disabled:        len(keys) == 0 || len(models) == 0,
	}
}

// Disabled reports whether the AI extractor is permanently disabled for
// this run
func (s *RotationState) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// Budget returns the bounded number of rotation steps available per
// extraction call (keys x models), which guarantees termination
func (s *RotationState) Budget() int {
	return len(s.keys) * len(s.models)
}

// Current returns the active (key, model) pair. ok is false once the
// state is disabled.
func (s *RotationState) Current() (key, model string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return "", "", false
	}
	return s.keys[s.keyIdx], s.models[s.modelIdx], true
}

// ExhaustModel marks the current model exhausted for the current key and
// advances to the next usable pair: next non-exhausted model first, then
// the next non-exhausted key with a fresh model set. When every key is
// exhausted the state becomes permanently disabled.
func (s *RotationState) ExhaustModel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return
	}
	s.exhaustedModels[s.modelIdx] = true
	if next, ok := s.nextModel(); ok {
		s.modelIdx = next
		return
	}
	s.exhaustKey()
}

// SkipModel advances to the next non-exhausted model without marking the
// current one exhausted. Used for transient conditions (overload,
// truncated output) where the model may recover later in the run.
func (s *RotationState) SkipModel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return
	}
	for i := 1; i <= len(s.models); i++ {
		idx := (s.modelIdx + i) % len(s.models)
		if !s.exhaustedModels[idx] {
			s.modelIdx = idx
			return
		}
	}
}

func (s *RotationState) nextModel() (int, bool) {
	for i := 1; i <= len(s.models); i++ {
		idx := (s.modelIdx + i) % len(s.models)
		if !s.exhaustedModels[idx] {
			return idx, true
		}
	}
	return 0, false
}

func (s *RotationState) exhaustKey() {
	s.exhaustedKeys[s.keyIdx] = true
	s.exhaustedModels = make(map[int]bool)
	for i := 1; i <= len(s.keys); i++ {
		idx := (s.keyIdx + i) % len(s.keys)
		if !s.exhaustedKeys[idx] {
			s.keyIdx = idx
			s.modelIdx = 0
			return
		}
	}
	s.disabled = true
}
