package history

import "fmt"

// GroupHandle addresses a group in the engine's arena. A handle whose slot
// was freed and reused no longer resolves.
type GroupHandle struct {
	index uint32
	gen   uint32
}

// String returns a printable form of the handle.
func (h GroupHandle) String() string {
	return fmt.Sprintf("group#%d.%d", h.index, h.gen)
}

// IsZero reports whether h is the zero handle.
func (h GroupHandle) IsZero() bool {
	return h.gen == 0
}

type arenaSlot struct {
	group *CommandGroup
	gen   uint32
	refs  int
}

// arena owns every live group. Stacks hold handles and keep a reference
// count on the slot; the slot is freed when the last stack entry goes away.
type arena struct {
	slots []arenaSlot
	free  []uint32
	live  int
}

func (a *arena) insert(g *CommandGroup) GroupHandle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, arenaSlot{})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.gen++
	s.group = g
	s.refs = 0
	a.live++
	return GroupHandle{index: idx, gen: s.gen}
}

func (a *arena) slot(h GroupHandle) *arenaSlot {
	if int(h.index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.index]
	if s.gen != h.gen || s.group == nil {
		return nil
	}
	return s
}

func (a *arena) get(h GroupHandle) (*CommandGroup, bool) {
	s := a.slot(h)
	if s == nil {
		return nil, false
	}
	return s.group, true
}

func (a *arena) retain(h GroupHandle) {
	if s := a.slot(h); s != nil {
		s.refs++
	}
}

// release drops one stack reference and frees the slot at zero.
// It reports whether the group was freed.
func (a *arena) release(h GroupHandle) bool {
	s := a.slot(h)
	if s == nil {
		return false
	}
	s.refs--
	if s.refs > 0 {
		return false
	}
	s.group = nil
	s.refs = 0
	a.free = append(a.free, h.index)
	a.live--
	return true
}

func (a *arena) len() int {
	return a.live
}

func (a *arena) each(fn func(h GroupHandle, g *CommandGroup)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.group != nil {
			fn(GroupHandle{index: uint32(i), gen: s.gen}, s.group)
		}
	}
}

func (a *arena) has(h GroupHandle) bool {
	return a.slot(h) != nil
}
