package session

// Group fans events out to a set of sessions. Controllers keep one group per
// room and mutate it under the room lock.
type Group struct {
	sessions []*Session
}

// NewGroup builds a group over the given sessions.
func NewGroup(sessions ...*Session) *Group {
	return &Group{sessions: sessions}
}

// Add appends a session; duplicates are ignored.
func (g *Group) Add(s *Session) {
	if g.Contains(s) {
		return
	}
	g.sessions = append(g.sessions, s)
}

// Remove drops a session from the group.
func (g *Group) Remove(s *Session) {
	for i, member := range g.sessions {
		if member == s {
			g.sessions = append(g.sessions[:i], g.sessions[i+1:]...)
			return
		}
	}
}

// Contains reports group membership.
func (g *Group) Contains(s *Session) bool {
	for _, member := range g.sessions {
		if member == s {
			return true
		}
	}
	return false
}

// Sessions returns the members, in join order.
func (g *Group) Sessions() []*Session {
	return g.sessions
}

// Len returns the member count.
func (g *Group) Len() int {
	return len(g.sessions)
}

// AddEvent queues an event on every member.
func (g *Group) AddEvent(name string, data any) {
	for _, s := range g.sessions {
		s.AddEvent(name, data)
	}
}

// AddEvents queues a batch on every member.
func (g *Group) AddEvents(events []Event) {
	for _, s := range g.sessions {
		s.AddEvents(events)
	}
}
