package history

import "slices"

// stackPair is the undo and redo history of one document (or the global view).
type stackPair struct {
	undo []GroupHandle
	redo []GroupHandle
}

func (p *stackPair) stack(dir Direction) *[]GroupHandle {
	if dir == Undo {
		return &p.undo
	}
	return &p.redo
}

// DocumentStacks keeps a bounded pair of LIFO stacks per document plus the
// global ordering view under GlobalRef. Entries are handles into the arena;
// a group is shared by every stack it appears in.
type DocumentStacks struct {
	arena    *arena
	docs     map[DocumentRef]*stackPair
	maxDepth int
}

func newDocumentStacks(a *arena, maxDepth int) *DocumentStacks {
	return &DocumentStacks{
		arena:    a,
		docs:     make(map[DocumentRef]*stackPair),
		maxDepth: maxDepth,
	}
}

func (s *DocumentStacks) pair(ref DocumentRef, create bool) *stackPair {
	p := s.docs[ref]
	if p == nil && create {
		p = &stackPair{}
		s.docs[ref] = p
	}
	return p
}

// push puts h on the undo stack of every ref, clears their redo stacks and
// evicts the oldest entries beyond maxDepth. It returns the freed groups.
func (s *DocumentStacks) push(h GroupHandle, refs []DocumentRef) []*CommandGroup {
	var freed []*CommandGroup
	for _, ref := range refs {
		p := s.pair(ref, true)
		for len(p.redo) > 0 {
			freed = append(freed, s.evict(p.redo[len(p.redo)-1], &p.redo)...)
		}
		s.arena.retain(h)
		p.undo = append(p.undo, h)
	}
	for _, ref := range refs {
		freed = append(freed, s.trim(s.pair(ref, true))...)
	}
	return freed
}

func (s *DocumentStacks) trim(p *stackPair) []*CommandGroup {
	var freed []*CommandGroup
	for s.maxDepth > 0 && len(p.undo) > s.maxDepth {
		freed = append(freed, s.evict(p.undo[0], &p.undo)...)
	}
	return freed
}

// evict removes h from every stack its group lives in, so a group never
// survives in one document's history after leaving another's. st is the
// stack being shrunk; it always loses h even if the group is gone.
func (s *DocumentStacks) evict(h GroupHandle, st *[]GroupHandle) []*CommandGroup {
	g, ok := s.arena.get(h)
	if ok {
		s.drop(h, g.stackRefs())
	}
	if i := slices.Index(*st, h); i >= 0 {
		*st = slices.Delete(*st, i, i+1)
	}
	if ok && !s.arena.has(h) {
		return []*CommandGroup{g}
	}
	return nil
}

func (s *DocumentStacks) releaseAll(hs []GroupHandle) []*CommandGroup {
	var freed []*CommandGroup
	for _, h := range hs {
		g, _ := s.arena.get(h)
		if s.arena.release(h) && g != nil {
			freed = append(freed, g)
		}
	}
	return freed
}

// top returns the most recent handle of ref's stack in direction dir.
func (s *DocumentStacks) top(ref DocumentRef, dir Direction) (GroupHandle, bool) {
	p := s.pair(ref, false)
	if p == nil {
		return GroupHandle{}, false
	}
	st := *p.stack(dir)
	if len(st) == 0 {
		return GroupHandle{}, false
	}
	return st[len(st)-1], true
}

// isTopAll reports whether h is the most recent entry on every ref's stack.
func (s *DocumentStacks) isTopAll(h GroupHandle, refs []DocumentRef, dir Direction) bool {
	for _, ref := range refs {
		top, ok := s.top(ref, dir)
		if !ok || top != h {
			return false
		}
	}
	return true
}

// move pops h from the dir stack of every ref and pushes it on the opposite
// one. The caller has checked isTopAll.
func (s *DocumentStacks) move(h GroupHandle, refs []DocumentRef, dir Direction) {
	for _, ref := range refs {
		p := s.pair(ref, true)
		from := p.stack(dir)
		to := p.stack(dir.Opposite())
		*from = (*from)[:len(*from)-1]
		*to = append(*to, h)
	}
	if dir == Redo {
		// Redo can grow an undo stack past the limit after a depth change.
		for _, ref := range refs {
			s.trim(s.pair(ref, true))
		}
	}
}

// drop removes h from every stack of refs, wherever it sits.
func (s *DocumentStacks) drop(h GroupHandle, refs []DocumentRef) {
	for _, ref := range refs {
		p := s.pair(ref, false)
		if p == nil {
			continue
		}
		for _, st := range []*[]GroupHandle{&p.undo, &p.redo} {
			if i := slices.Index(*st, h); i >= 0 {
				*st = slices.Delete(*st, i, i+1)
				s.arena.release(h)
			}
		}
	}
}

// remove forgets ref's stacks and returns the groups that are no longer
// referenced from any stack.
func (s *DocumentStacks) remove(ref DocumentRef) []*CommandGroup {
	p := s.pair(ref, false)
	if p == nil {
		return nil
	}
	delete(s.docs, ref)
	freed := s.releaseAll(p.undo)
	return append(freed, s.releaseAll(p.redo)...)
}

// handles returns ref's stack in direction dir, oldest first.
func (s *DocumentStacks) handles(ref DocumentRef, dir Direction) []GroupHandle {
	p := s.pair(ref, false)
	if p == nil {
		return nil
	}
	return slices.Clone(*p.stack(dir))
}

func (s *DocumentStacks) depth(ref DocumentRef, dir Direction) int {
	p := s.pair(ref, false)
	if p == nil {
		return 0
	}
	return len(*p.stack(dir))
}

func (s *DocumentStacks) setMaxDepth(n int) []*CommandGroup {
	s.maxDepth = n
	var freed []*CommandGroup
	for _, p := range s.docs {
		freed = append(freed, s.trim(p)...)
	}
	return freed
}

func (s *DocumentStacks) refs() []DocumentRef {
	refs := make([]DocumentRef, 0, len(s.docs))
	for ref := range s.docs {
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	return refs
}

func (s *DocumentStacks) clear() {
	for ref := range s.docs {
		s.remove(ref)
	}
}
