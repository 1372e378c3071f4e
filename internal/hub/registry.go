package hub

// connState is the per-connection record owned by the registry.
//
// room is the id of the room the connection is currently in, or "" when the
// connection is not in any room. Membership is expressed purely through ids;
// the registry never holds references into the room directory.
type connState struct {
	room string
}

// connRegistry maps live connection ids to their state.
//
// It is not safe for concurrent use on its own; the Hub serializes access
// under a single lock together with the room directory so the cross-structure
// invariant (connState.room matches the directory's member lists) can be
// maintained atomically.
type connRegistry struct {
	conns map[string]*connState
}

func newConnRegistry() *connRegistry {
	return &connRegistry{conns: make(map[string]*connState)}
}

func (r *connRegistry) register(id string) error {
	if _, ok := r.conns[id]; ok {
		return ErrAlreadyRegistered
	}
	r.conns[id] = &connState{}
	return nil
}

// unregister removes the connection and returns the room it was in, if any.
// Unknown ids are a no-op: disconnects must never fail.
func (r *connRegistry) unregister(id string) (room string, ok bool) {
	st, ok := r.conns[id]
	if !ok {
		return "", false
	}
	delete(r.conns, id)
	return st.room, true
}

// setRoom updates the connection's room ("" clears it).
func (r *connRegistry) setRoom(id, room string) error {
	st, ok := r.conns[id]
	if !ok {
		return ErrUnknownConnection
	}
	st.room = room
	return nil
}

func (r *connRegistry) room(id string) (string, bool) {
	st, ok := r.conns[id]
	if !ok {
		return "", false
	}
	return st.room, true
}

func (r *connRegistry) registered(id string) bool {
	_, ok := r.conns[id]
	return ok
}

func (r *connRegistry) len() int { return len(r.conns) }
