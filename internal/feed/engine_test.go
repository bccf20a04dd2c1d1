package feed

import (
	"errors"
	"slices"
	"testing"
)

func items(ids ...string) []Item {
	out := make([]Item, len(ids))
	for i, id := range ids {
		out[i] = Item{ID: id, ChannelID: "ch-" + id}
	}
	return out
}

// loaded returns an engine that already holds the given items.
func loaded(t *testing.T, ids ...string) *Engine {
	t.Helper()
	e := NewEngine()
	req, err := e.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	res := e.Complete(req, items(ids...), nil)
	if res.Outcome != OutcomeRefreshed {
		t.Fatalf("initial outcome = %v, want refreshed", res.Outcome)
	}
	return e
}

func TestLoadMoreAppendsPage(t *testing.T) {
	e := loaded(t, "A", "B", "C")

	req, err := e.LoadMore()
	if err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if req.Offset != 3 {
		t.Errorf("offset = %d, want 3", req.Offset)
	}

	res := e.Complete(req, items("D", "E"), nil)
	if res.Outcome != OutcomeAppended {
		t.Fatalf("outcome = %v, want appended", res.Outcome)
	}
	if got := IDs(res.Items); !slices.Equal(got, []string{"A", "B", "C", "D", "E"}) {
		t.Errorf("items = %v, want [A B C D E]", got)
	}
	if res.Added != 2 {
		t.Errorf("added = %d, want 2", res.Added)
	}
	if st := e.State(); st.Cursor != 5 || st.Loading || st.Exhausted {
		t.Errorf("state = %+v, want cursor 5, not loading, not exhausted", st)
	}
}

func TestLoadMoreRepeatedTailExhausts(t *testing.T) {
	e := loaded(t, "A", "B", "C")

	req, _ := e.LoadMore()
	res := e.Complete(req, items("C"), nil)

	if res.Outcome != OutcomeNoMoreData {
		t.Fatalf("outcome = %v, want no_more_data", res.Outcome)
	}
	if got := IDs(e.Items()); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("items = %v, want unchanged [A B C]", got)
	}
	if !e.State().Exhausted {
		t.Error("expected exhausted after repeated tail")
	}
}

func TestLoadMoreTailOnlyComparison(t *testing.T) {
	// Same last id with different leading items still counts as the end.
	e := loaded(t, "A", "B", "C")

	req, _ := e.LoadMore()
	res := e.Complete(req, items("X", "Y", "C"), nil)

	if res.Outcome != OutcomeNoMoreData {
		t.Errorf("outcome = %v, want no_more_data", res.Outcome)
	}
	if e.Len() != 3 {
		t.Errorf("len = %d, want 3", e.Len())
	}
}

func TestLoadMoreEmptyPageExhausts(t *testing.T) {
	e := loaded(t, "A")

	req, _ := e.LoadMore()
	res := e.Complete(req, nil, nil)
	if res.Outcome != OutcomeNoMoreData || !res.Exhausted {
		t.Fatalf("result = %+v, want exhausted no_more_data", res)
	}

	if _, err := e.LoadMore(); !errors.Is(err, ErrExhausted) {
		t.Errorf("LoadMore after exhaustion err = %v, want ErrExhausted", err)
	}
}

func TestLoadMoreSingleFlight(t *testing.T) {
	e := loaded(t, "A", "B")

	first, err := e.LoadMore()
	if err != nil {
		t.Fatalf("first LoadMore: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := e.LoadMore(); !errors.Is(err, ErrInFlight) {
			t.Fatalf("LoadMore #%d while loading err = %v, want ErrInFlight", i, err)
		}
	}
	if _, err := e.Refresh(); !errors.Is(err, ErrInFlight) {
		t.Errorf("Refresh while loading err = %v, want ErrInFlight", err)
	}

	res := e.Complete(first, items("C"), nil)
	if res.Outcome != OutcomeAppended {
		t.Errorf("outcome = %v, want appended", res.Outcome)
	}
}

func TestLoadMoreDroppedWhileRefreshPending(t *testing.T) {
	e := loaded(t, "A", "B")

	refresh, err := e.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if kind, loading := e.Loading(); !loading || kind != KindRefresh {
		t.Fatalf("Loading() = %v, %v; want refresh, true", kind, loading)
	}
	if _, err := e.LoadMore(); !errors.Is(err, ErrInFlight) {
		t.Fatalf("LoadMore during refresh err = %v, want ErrInFlight", err)
	}

	res := e.Complete(refresh, items("X", "Y"), nil)
	if got := IDs(res.Items); !slices.Equal(got, []string{"X", "Y"}) {
		t.Errorf("items = %v, want [X Y]", got)
	}
}

func TestRefreshResetsExhaustion(t *testing.T) {
	e := loaded(t, "A", "B")
	req, _ := e.LoadMore()
	e.Complete(req, nil, nil)
	if !e.State().Exhausted {
		t.Fatal("setup: expected exhausted")
	}

	req, err := e.Refresh()
	if err != nil {
		t.Fatalf("Refresh on exhausted feed: %v", err)
	}
	if req.Offset != 0 {
		t.Errorf("refresh offset = %d, want 0", req.Offset)
	}
	if e.State().Exhausted {
		t.Error("Refresh should clear exhausted immediately")
	}

	res := e.Complete(req, items("Q", "R", "S"), nil)
	if res.Outcome != OutcomeRefreshed || res.Exhausted {
		t.Fatalf("result = %+v, want refreshed, not exhausted", res)
	}
	if got := IDs(e.Items()); !slices.Equal(got, []string{"Q", "R", "S"}) {
		t.Errorf("items = %v, want wholesale replacement [Q R S]", got)
	}
}

func TestRefreshSameTailStillReplaces(t *testing.T) {
	e := loaded(t, "A", "B")

	req, _ := e.Refresh()
	res := e.Complete(req, items("Z", "B"), nil)

	if res.Outcome != OutcomeRefreshed {
		t.Errorf("outcome = %v, want refreshed", res.Outcome)
	}
	if got := IDs(e.Items()); !slices.Equal(got, []string{"Z", "B"}) {
		t.Errorf("items = %v, want [Z B]", got)
	}
}

func TestRefreshEmptyIsTerminal(t *testing.T) {
	e := loaded(t, "A")

	req, _ := e.Refresh()
	res := e.Complete(req, nil, nil)

	if res.Outcome != OutcomeRefreshed {
		t.Fatalf("outcome = %v, want refreshed", res.Outcome)
	}
	if res.Err != nil {
		t.Errorf("empty refresh should not be an error, got %v", res.Err)
	}
	if !res.Exhausted || e.Len() != 0 {
		t.Errorf("want empty exhausted feed, got len %d exhausted %v", e.Len(), res.Exhausted)
	}
}

func TestLoadMoreFailureIsRetryable(t *testing.T) {
	e := loaded(t, "A", "B", "C")
	boom := errors.New("network down")

	req, _ := e.LoadMore()
	res := e.Complete(req, nil, boom)
	if res.Outcome != OutcomeFailed || !errors.Is(res.Err, boom) {
		t.Fatalf("result = %+v, want failed with boom", res)
	}

	st := e.State()
	if st.Loading || st.Exhausted || st.Cursor != 3 || len(st.Items) != 3 {
		t.Errorf("state after failure = %+v, want untouched and not loading", st)
	}

	retry, err := e.LoadMore()
	if err != nil {
		t.Fatalf("retry LoadMore: %v", err)
	}
	if retry.Offset != 3 {
		t.Errorf("retry offset = %d, want 3", retry.Offset)
	}
}

func TestRefreshFailureRestoresState(t *testing.T) {
	e := loaded(t, "A", "B")
	req, _ := e.LoadMore()
	e.Complete(req, nil, nil) // exhausted

	req, _ = e.Refresh()
	res := e.Complete(req, nil, errors.New("timeout"))
	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", res.Outcome)
	}

	st := e.State()
	if !st.Exhausted || st.Cursor != 2 || len(st.Items) != 2 {
		t.Errorf("state = %+v, want pre-refresh cursor 2, exhausted, items kept", st)
	}
}

func TestCompleteIgnoresStaleRequest(t *testing.T) {
	e := loaded(t, "A")

	first, _ := e.LoadMore()
	e.Complete(first, items("B"), nil)

	// Completing the same request twice must not append again.
	res := e.Complete(first, items("C"), nil)
	if res.Outcome != OutcomeStale {
		t.Errorf("outcome = %v, want stale", res.Outcome)
	}
	if got := IDs(e.Items()); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("items = %v, want [A B]", got)
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	e := loaded(t, "A", "B")

	got := e.Items()
	got[0].ID = "mutated"

	if e.Items()[0].ID != "A" {
		t.Error("Items() must not expose internal storage")
	}
}

func TestIndexOf(t *testing.T) {
	e := loaded(t, "A", "B", "C")

	tests := []struct {
		id   string
		want int
	}{
		{"A", 0},
		{"C", 2},
		{"missing", -1},
	}
	for _, tt := range tests {
		if got := e.IndexOf(tt.id); got != tt.want {
			t.Errorf("IndexOf(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}

	if it, ok := e.Item("B"); !ok || it.ChannelID != "ch-B" {
		t.Errorf("Item(B) = %+v, %v", it, ok)
	}
}

func TestSetSubscribedUpdatesHeldItems(t *testing.T) {
	e := NewEngine()
	req, _ := e.Refresh()
	e.Complete(req, []Item{
		{ID: "A", ChannelID: "x"},
		{ID: "B", ChannelID: "y"},
		{ID: "C", ChannelID: "x", Subscribed: true},
	}, nil)

	if n := e.SetSubscribed("x", true); n != 1 {
		t.Errorf("changed = %d, want 1", n)
	}
	for _, it := range e.Items() {
		if want := it.ChannelID == "x"; it.Subscribed != want {
			t.Errorf("%s subscribed = %v, want %v", it.ID, it.Subscribed, want)
		}
	}

	if n := e.SetSubscribed("x", false); n != 2 {
		t.Errorf("changed = %d, want 2", n)
	}
	if n := e.SetSubscribed("missing", true); n != 0 {
		t.Errorf("changed = %d, want 0", n)
	}
	if slices.ContainsFunc(e.Items(), func(it Item) bool { return it.Subscribed }) {
		t.Error("rollback left an item subscribed")
	}
}
