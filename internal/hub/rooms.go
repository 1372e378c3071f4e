package hub

// roomDirectory maps room ids to their ordered member lists.
//
// Rooms exist iff they have at least one member: they are created lazily on
// first join and deleted eagerly when the last member leaves. Member order is
// insertion order; it is the order reported to newly joined members.
//
// Like connRegistry, this type is not locked on its own. The Hub guards both
// under one mutex.
type roomDirectory struct {
	rooms map[string][]string
}

func newRoomDirectory() *roomDirectory {
	return &roomDirectory{rooms: make(map[string][]string)}
}

// join appends connID to the room, creating the room if absent. Joining a
// room the connection is already a member of is a no-op; it must not produce
// a duplicate entry.
func (d *roomDirectory) join(roomID, connID string) {
	members := d.rooms[roomID]
	for _, m := range members {
		if m == connID {
			return
		}
	}
	d.rooms[roomID] = append(members, connID)
}

// leave removes connID from the room and deletes the room when it becomes
// empty. Unknown rooms and non-members are a no-op.
func (d *roomDirectory) leave(roomID, connID string) {
	members, ok := d.rooms[roomID]
	if !ok {
		return
	}
	for i, m := range members {
		if m != connID {
			continue
		}
		members = append(members[:i], members[i+1:]...)
		if len(members) == 0 {
			delete(d.rooms, roomID)
		} else {
			d.rooms[roomID] = members
		}
		return
	}
}

// members returns a copy of the room's member list, in join order. The copy
// keeps callers from observing mutations made after the lookup.
func (d *roomDirectory) members(roomID string) []string {
	members := d.rooms[roomID]
	if len(members) == 0 {
		return nil
	}
	out := make([]string, len(members))
	copy(out, members)
	return out
}

func (d *roomDirectory) count(roomID string) int {
	return len(d.rooms[roomID])
}

func (d *roomDirectory) len() int { return len(d.rooms) }
