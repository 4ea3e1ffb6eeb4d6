// Package selection decides what plays next: sequential library order or
// an affinity-weighted shuffle, constrained by a bounded history so the
// same track does not come around twice in quick succession.
package selection

import "cadence/internal/models"

// History is the bounded record of recently played fingerprints, most
// recent last. It exists only to forbid short-term repeats and to support
// "previous"; it is not persisted and resets with the process.
type History struct {
	entries  []models.Fingerprint
	capacity int
}

// NewHistory creates a History remembering up to capacity fingerprints.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{capacity: capacity}
}

// Push records fp as the most recent play. A fingerprint already in the
// window moves to the most recent slot instead of appearing twice.
func (h *History) Push(fp models.Fingerprint) {
	for i, existing := range h.entries {
		if existing == fp {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append(h.entries, fp)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
}

// Contains reports whether fp is inside the recent window.
func (h *History) Contains(fp models.Fingerprint) bool {
	for _, existing := range h.entries {
		if existing == fp {
			return true
		}
	}
	return false
}

// Previous returns the fingerprint played just before the most recent
// one, when the window holds one.
func (h *History) Previous() (models.Fingerprint, bool) {
	if len(h.entries) < 2 {
		return "", false
	}
	return h.entries[len(h.entries)-2], true
}

// LeastRecent returns the candidate that was played longest ago, used
// when every candidate sits inside the recent window. Candidates absent
// from the window entirely count as oldest of all.
func (h *History) LeastRecent(candidates []models.Track) *models.Track {
	if len(candidates) == 0 {
		return nil
	}

	position := make(map[models.Fingerprint]int, len(h.entries))
	for i, fp := range h.entries {
		position[fp] = i
	}

	best := 0
	bestPos := len(h.entries)
	for i := range candidates {
		pos, ok := position[candidates[i].Fingerprint]
		if !ok {
			return &candidates[i]
		}
		if pos < bestPos {
			best = i
			bestPos = pos
		}
	}
	return &candidates[best]
}

// Len reports how many fingerprints the window currently holds.
func (h *History) Len() int {
	return len(h.entries)
}
