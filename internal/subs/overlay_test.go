package subs

import (
	"errors"
	"testing"

	"github.com/abelbrown/reel/internal/feed"
)

func TestApplySnapshotMarksFollowedChannels(t *testing.T) {
	o := NewOverlay()
	o.ApplySnapshot([]string{"c1", "c3"})

	got := o.Decorate([]feed.Item{
		{ID: "a", ChannelID: "c1"},
		{ID: "b", ChannelID: "c2"},
		{ID: "c", ChannelID: "c3"},
		{ID: "d", ChannelID: "c1"},
	})

	want := []bool{true, false, true, true}
	for i, it := range got {
		if it.Subscribed != want[i] {
			t.Errorf("item %s subscribed = %v, want %v", it.ID, it.Subscribed, want[i])
		}
	}
}

func TestApplySnapshotReplacesPreviousState(t *testing.T) {
	o := NewOverlay()
	o.ApplySnapshot([]string{"c1"})
	o.ApplySnapshot([]string{"c2"})

	if o.Subscribed("c1") {
		t.Error("c1 should be unsubscribed after a snapshot without it")
	}
	if !o.Subscribed("c2") {
		t.Error("c2 should be subscribed")
	}
}

func TestDecorateDoesNotMutateInput(t *testing.T) {
	o := NewOverlay()
	o.ApplySnapshot([]string{"c1"})

	in := []feed.Item{{ID: "a", ChannelID: "c1"}}
	_ = o.Decorate(in)

	if in[0].Subscribed {
		t.Error("Decorate must return a copy")
	}
}

func TestToggleIsVisibleImmediately(t *testing.T) {
	o := NewOverlay()

	ticket, err := o.Toggle("c1")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if ticket.Prior || !ticket.Target {
		t.Errorf("ticket = %+v, want prior=false target=true", ticket)
	}
	if !o.Subscribed("c1") || !o.Pending("c1") {
		t.Error("optimistic subscribe should be visible and pending before Resolve")
	}

	items := o.Decorate([]feed.Item{{ID: "a", ChannelID: "c1"}, {ID: "b", ChannelID: "c1"}})
	for _, it := range items {
		if !it.Subscribed {
			t.Errorf("item %s should share the channel's optimistic state", it.ID)
		}
	}
}

func TestToggleRejectedWhilePending(t *testing.T) {
	o := NewOverlay()
	if _, err := o.Toggle("c1"); err != nil {
		t.Fatalf("first Toggle: %v", err)
	}

	if _, err := o.Toggle("c1"); !errors.Is(err, ErrPending) {
		t.Errorf("second Toggle err = %v, want ErrPending", err)
	}
	if !o.Subscribed("c1") {
		t.Error("rejected toggle must not change state")
	}
}

func TestToggleIndependentAcrossChannels(t *testing.T) {
	o := NewOverlay()
	o.ApplySnapshot([]string{"c2"})

	t1, err := o.Toggle("c1")
	if err != nil {
		t.Fatalf("Toggle c1: %v", err)
	}
	t2, err := o.Toggle("c2")
	if err != nil {
		t.Fatalf("Toggle c2 while c1 pending: %v", err)
	}

	if got := o.Resolve(t2, nil); got {
		t.Errorf("c2 after confirmed unsubscribe = %v, want false", got)
	}
	if !o.Pending("c1") {
		t.Error("resolving c2 must not touch c1")
	}
	if got := o.Resolve(t1, nil); !got {
		t.Errorf("c1 after confirmed subscribe = %v, want true", got)
	}
}

func TestResolveFailureRestoresPriorValue(t *testing.T) {
	tests := []struct {
		name     string
		snapshot []string
		prior    bool
	}{
		{"subscribe fails", nil, false},
		{"unsubscribe fails", []string{"c1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOverlay()
			o.ApplySnapshot(tt.snapshot)

			before := o.Subscribed("c1")
			ticket, err := o.Toggle("c1")
			if err != nil {
				t.Fatalf("Toggle: %v", err)
			}
			if o.Subscribed("c1") == before {
				t.Fatal("toggle should flip the visible value")
			}

			got := o.Resolve(ticket, errors.New("server said no"))
			if got != tt.prior || o.Subscribed("c1") != before {
				t.Errorf("after failure subscribed = %v, want %v", got, before)
			}
			if o.Pending("c1") {
				t.Error("pending should be cleared after Resolve")
			}
		})
	}
}

func TestSnapshotKeepsPendingToggle(t *testing.T) {
	o := NewOverlay()
	ticket, _ := o.Toggle("c1") // optimistic subscribe

	// Snapshot taken before the server applied the follow.
	o.ApplySnapshot(nil)

	if !o.Subscribed("c1") || !o.Pending("c1") {
		t.Error("snapshot must not overwrite an in-flight toggle")
	}

	o.Resolve(ticket, errors.New("rejected"))
	if o.Subscribed("c1") {
		t.Error("rollback should restore the value captured in the ticket")
	}
}

func TestToggleAfterResolveAllowed(t *testing.T) {
	o := NewOverlay()
	t1, _ := o.Toggle("c1")
	o.Resolve(t1, nil)

	t2, err := o.Toggle("c1")
	if err != nil {
		t.Fatalf("Toggle after resolve: %v", err)
	}
	if !t2.Prior || t2.Target {
		t.Errorf("ticket = %+v, want unsubscribe from subscribed", t2)
	}
}
