package hub

import (
	"reflect"
	"testing"
)

func TestRoomDirectoryJoinOrder(t *testing.T) {
	d := newRoomDirectory()
	d.join("r", "a")
	d.join("r", "b")
	d.join("r", "c")

	if got := d.members("r"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("members=%v, want [a b c]", got)
	}
	if got := d.count("r"); got != 3 {
		t.Fatalf("count=%d, want 3", got)
	}
}

func TestRoomDirectoryJoinDuplicate(t *testing.T) {
	d := newRoomDirectory()
	d.join("r", "a")
	d.join("r", "b")
	d.join("r", "a")

	if got := d.members("r"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("members=%v, want [a b]", got)
	}
}

func TestRoomDirectoryLeaveDeletesEmptyRoom(t *testing.T) {
	d := newRoomDirectory()
	d.join("r", "a")
	d.leave("r", "a")

	if got := d.len(); got != 0 {
		t.Fatalf("len=%d, want 0", got)
	}
	if got := d.members("r"); got != nil {
		t.Fatalf("members=%v, want nil", got)
	}
}

func TestRoomDirectoryLeaveUnknown(t *testing.T) {
	d := newRoomDirectory()
	d.join("r", "a")

	d.leave("r", "ghost")
	d.leave("nope", "a")

	if got := d.members("r"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("members=%v, want [a]", got)
	}
}

func TestRoomDirectoryMembersReturnsCopy(t *testing.T) {
	d := newRoomDirectory()
	d.join("r", "a")
	d.join("r", "b")

	got := d.members("r")
	got[0] = "mutated"

	if fresh := d.members("r"); fresh[0] != "a" {
		t.Fatalf("directory observed caller mutation: %v", fresh)
	}
}

func TestConnRegistryLifecycle(t *testing.T) {
	r := newConnRegistry()

	if err := r.register("a"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.register("a"); err != ErrAlreadyRegistered {
		t.Fatalf("register duplicate err=%v, want ErrAlreadyRegistered", err)
	}
	if !r.registered("a") {
		t.Fatalf("registered(a)=false, want true")
	}

	if err := r.setRoom("a", "r1"); err != nil {
		t.Fatalf("setRoom: %v", err)
	}
	if room, ok := r.room("a"); !ok || room != "r1" {
		t.Fatalf("room=%q ok=%v, want r1 true", room, ok)
	}

	room, ok := r.unregister("a")
	if !ok || room != "r1" {
		t.Fatalf("unregister=%q %v, want r1 true", room, ok)
	}
	if _, ok := r.unregister("a"); ok {
		t.Fatalf("second unregister ok=true, want false")
	}
	if err := r.setRoom("a", "r1"); err != ErrUnknownConnection {
		t.Fatalf("setRoom unknown err=%v, want ErrUnknownConnection", err)
	}
}
