package relay

// Groups tracks which subscribers follow which identifier.
// A subscriber belongs to at most one group.
type Groups struct {
	members map[string]map[Subscriber]struct{}
	joined  map[Subscriber]string
}

// NewGroups creates an empty membership table.
func NewGroups() *Groups {
	return &Groups{
		members: make(map[string]map[Subscriber]struct{}),
		joined:  make(map[Subscriber]string),
	}
}

// Join puts sub in the group for identifier, leaving any other group.
// It returns the group sub left, or "".
func (g *Groups) Join(sub Subscriber, identifier string) (previous string) {
	previous, wasMember := g.joined[sub]
	if wasMember && previous == identifier {
		return ""
	}
	if wasMember {
		g.remove(sub, previous)
	}

	set, ok := g.members[identifier]
	if !ok {
		set = make(map[Subscriber]struct{})
		g.members[identifier] = set
	}
	set[sub] = struct{}{}
	g.joined[sub] = identifier
	return previous
}

// Leave takes sub out of the group for identifier.
// It reports whether sub was a member of that group.
func (g *Groups) Leave(sub Subscriber, identifier string) bool {
	if g.joined[sub] != identifier {
		return false
	}
	g.remove(sub, identifier)
	return true
}

// Drop takes sub out of whatever group it is in and returns that group.
func (g *Groups) Drop(sub Subscriber) (identifier string, ok bool) {
	identifier, ok = g.joined[sub]
	if ok {
		g.remove(sub, identifier)
	}
	return identifier, ok
}

// Members returns the subscribers in the group for identifier.
func (g *Groups) Members(identifier string) []Subscriber {
	set := g.members[identifier]
	out := make([]Subscriber, 0, len(set))
	for sub := range set {
		out = append(out, sub)
	}
	return out
}

// Size returns the number of subscribers in the group for identifier.
func (g *Groups) Size(identifier string) int {
	return len(g.members[identifier])
}

func (g *Groups) remove(sub Subscriber, identifier string) {
	delete(g.joined, sub)
	set := g.members[identifier]
	delete(set, sub)
	if len(set) == 0 {
		delete(g.members, identifier)
	}
}
