// Package roster holds the players of a game session as an ordered mapping
// from an opaque player ID to a display name.
package roster

import (
	"iter"
	"maps"
	"slices"
)

// Player is one roster entry.
type Player struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Roster is an insertion-ordered mapping of player ID to display name.
// The zero value is empty and ready to use.
type Roster struct {
	players []Player
	index   map[string]int
}

func New() *Roster {
	return &Roster{}
}

// FromMap builds a roster from m, ordered by ID.
func FromMap(m map[string]string) *Roster {
	r := New()
	for _, id := range slices.Sorted(maps.Keys(m)) {
		r.Set(id, m[id])
	}
	return r
}

// Set adds a player, or renames it in place if the ID is already present.
func (r *Roster) Set(id, name string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[id]; ok {
		r.players[i].Name = name
		return
	}
	r.index[id] = len(r.players)
	r.players = append(r.players, Player{ID: id, Name: name})
}

func (r *Roster) Get(id string) (string, bool) {
	if r == nil {
		return "", false
	}
	i, ok := r.index[id]
	if !ok {
		return "", false
	}
	return r.players[i].Name, true
}

func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.players)
}

// All yields ID and name pairs in insertion order.
func (r *Roster) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if r == nil {
			return
		}
		for _, p := range r.players {
			if !yield(p.ID, p.Name) {
				return
			}
		}
	}
}

// Players returns a copy of the entries in order.
func (r *Roster) Players() []Player {
	if r == nil {
		return nil
	}
	return slices.Clone(r.players)
}
