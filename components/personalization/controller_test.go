package personalization

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu           sync.Mutex
	docs         map[string]Preferences
	fetchErr     error
	replaceErr   error
	fetchCalls   int
	replaceCalls int
	lastReplaced Preferences
	replaceGate  chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]Preferences{}}
}

func (s *fakeStore) Fetch(_ context.Context, userID string) (Preferences, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.fetchErr != nil {
		return Preferences{}, false, s.fetchErr
	}
	prefs, ok := s.docs[userID]
	return prefs.Clone(), ok, nil
}

func (s *fakeStore) Replace(_ context.Context, userID string, prefs Preferences) error {
	if s.replaceGate != nil {
		<-s.replaceGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceCalls++
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.docs[userID] = prefs.Clone()
	s.lastReplaced = prefs.Clone()
	return nil
}

func (s *fakeStore) replaced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceCalls
}

type captureHook struct {
	mu     sync.Mutex
	events []PreferenceEvent
	err    error
}

func (h *captureHook) PreferencesUpdated(_ context.Context, event PreferenceEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *captureHook) captured() []PreferenceEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]PreferenceEvent{}, h.events...)
}

func salesViewer() ViewerContext {
	return ViewerContext{UserID: "user-1", Role: "sales", View: ViewPresales}
}

func newTestController(store PreferenceStore, viewer ViewerContext) *Controller {
	return NewController(ControllerOptions{Store: store, Viewer: viewer})
}

func widgetIDs(widgets []ResolvedWidget) []string {
	ids := make([]string, len(widgets))
	for i, w := range widgets {
		ids[i] = w.Placement.ID
	}
	return ids
}

func TestLoadAdoptsStoredDocument(t *testing.T) {
	store := newFakeStore()
	store.docs["user-1"] = Preferences{Widgets: []WidgetPlacement{
		{ID: "tasks", Visible: true, Order: 0},
		{ID: "revenue_trend", Visible: false, Order: 1},
	}}

	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.Close()

	if c.State() != StateReady {
		t.Fatalf("expected ready state, got %v", c.State())
	}
	prefs, ok := c.Preferences()
	if !ok || len(prefs.Widgets) != 2 {
		t.Fatalf("expected stored document to be adopted, got %#v ok=%v", prefs, ok)
	}
	if store.replaced() != 0 {
		t.Fatalf("stored document must not be rewritten on load, got %d replace calls", store.replaced())
	}
}

func TestLoadSynthesizesAndPersistsDefaults(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.Close()

	prefs, ok := c.Preferences()
	if !ok {
		t.Fatal("expected defaults after load")
	}
	if len(prefs.Widgets) != len(DefaultWidgetDefinitions()) {
		t.Fatalf("expected one placement per built-in widget, got %d", len(prefs.Widgets))
	}
	if store.replaced() != 1 {
		t.Fatalf("expected synthesized defaults to be persisted once, got %d", store.replaced())
	}
}

func TestLoadFallsBackOnFetchFailure(t *testing.T) {
	store := newFakeStore()
	store.fetchErr = errors.New("store unavailable")

	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.Close()

	if c.State() != StateReady {
		t.Fatalf("expected ready state after failed fetch, got %v", c.State())
	}
	prefs, ok := c.Preferences()
	if !ok || len(prefs.Widgets) != len(DefaultWidgetDefinitions()) {
		t.Fatalf("expected default document after failed fetch, got %#v", prefs)
	}
	// a failed fetch must not clobber whatever the remote store holds
	if store.replaced() != 0 {
		t.Fatalf("expected no writes after failed fetch, got %d", store.replaced())
	}
}

func TestLoadAnonymousViewer(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store, ViewerContext{View: ViewPresales})
	c.Load(context.Background())

	if c.State() != StateReady {
		t.Fatalf("anonymous session should be ready, got %v", c.State())
	}
	if _, ok := c.Preferences(); ok {
		t.Fatal("anonymous session must not carry preferences")
	}
	if got := c.AccessibleWidgets(); got != nil {
		t.Fatalf("anonymous session derives an empty layout, got %#v", got)
	}
	if !c.IsVisible("tasks") {
		t.Fatal("visibility lookups default to true without preferences")
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.fetchCalls != 0 {
		t.Fatalf("anonymous session must not hit the store, got %d fetches", store.fetchCalls)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.docs["user-1"] = Preferences{Widgets: []WidgetPlacement{{ID: "tasks", Visible: true}}}

	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.Load(context.Background())
	c.Close()

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.fetchCalls != 1 {
		t.Fatalf("expected a single fetch, got %d", store.fetchCalls)
	}
}

func TestAccessibleWidgetsFiltersViewAndRole(t *testing.T) {
	c := newTestController(newFakeStore(), salesViewer())
	c.Load(context.Background())
	defer c.Close()

	got := widgetIDs(c.AccessibleWidgets())
	want := []string{"pipeline_overview", "quote_activity", "revenue_trend", "tasks"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAccessibleWidgetsForAdminPostsales(t *testing.T) {
	c := newTestController(newFakeStore(), ViewerContext{UserID: "admin-1", Role: "admin", View: ViewPostsales})
	c.Load(context.Background())
	defer c.Close()

	got := widgetIDs(c.AccessibleWidgets())
	want := []string{"revenue_trend", "tasks", "renewals_due", "support_queue", "team_utilization"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAccessibleWidgetsSkipsStaleIDs(t *testing.T) {
	store := newFakeStore()
	store.docs["user-1"] = Preferences{Widgets: []WidgetPlacement{
		{ID: "decommissioned_widget", Visible: true, Order: 0},
		{ID: "tasks", Visible: true, Order: 1},
	}}

	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	defer c.Close()

	got := widgetIDs(c.AccessibleWidgets())
	if len(got) != 1 || got[0] != "tasks" {
		t.Fatalf("stale ids must be silently skipped, got %v", got)
	}
	// the stale placement survives in the document itself
	prefs, _ := c.Preferences()
	if _, ok := prefs.Placement("decommissioned_widget"); !ok {
		t.Fatal("stale placement should remain in the stored document")
	}
}

func TestAccessibleWidgetsDuplicateLastEntryWins(t *testing.T) {
	store := newFakeStore()
	store.docs["user-1"] = Preferences{Widgets: []WidgetPlacement{
		{ID: "tasks", Visible: true, Order: 5},
		{ID: "pipeline_overview", Visible: true, Order: 1},
		{ID: "tasks", Visible: false, Order: 0},
	}}

	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	defer c.Close()

	accessible := c.AccessibleWidgets()
	var tasks *ResolvedWidget
	for i := range accessible {
		if accessible[i].Placement.ID == "tasks" {
			if tasks != nil {
				t.Fatal("duplicate id must resolve to a single entry")
			}
			tasks = &accessible[i]
		}
	}
	if tasks == nil {
		t.Fatal("expected tasks entry")
	}
	if tasks.Placement.Visible || tasks.Placement.Order != 0 {
		t.Fatalf("expected last duplicate to win, got %#v", tasks.Placement)
	}
}

func TestAccessibleWidgetsStableSortOnTies(t *testing.T) {
	store := newFakeStore()
	store.docs["user-1"] = Preferences{Widgets: []WidgetPlacement{
		{ID: "quote_activity", Visible: true, Order: 1},
		{ID: "pipeline_overview", Visible: true, Order: 1},
		{ID: "tasks", Visible: true, Order: 0},
	}}

	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	defer c.Close()

	got := widgetIDs(c.AccessibleWidgets())
	want := []string{"tasks", "quote_activity", "pipeline_overview"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ties must preserve document order, expected %v got %v", want, got)
		}
	}
}

func TestToggleVisibilityFlipsAndPersists(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.Close()

	before, _ := c.Preferences()
	c.ToggleVisibility(context.Background(), "tasks")
	c.Close()

	if c.IsVisible("tasks") {
		t.Fatal("expected tasks to be hidden after toggle")
	}
	for _, w := range c.VisibleWidgets() {
		if w.Placement.ID == "tasks" {
			t.Fatal("hidden widget must not appear in the visible list")
		}
	}
	prefs, _ := c.Preferences()
	if !prefs.LastModified.After(before.LastModified) {
		t.Fatal("expected LastModified to advance on mutation")
	}

	store.mu.Lock()
	placement, ok := store.lastReplaced.Placement("tasks")
	store.mu.Unlock()
	if !ok || placement.Visible {
		t.Fatalf("expected hidden placement to be persisted, got %#v ok=%v", placement, ok)
	}
}

func TestToggleUnknownIDIsNoOp(t *testing.T) {
	store := newFakeStore()
	store.docs["user-1"] = Preferences{Widgets: []WidgetPlacement{{ID: "tasks", Visible: true}}}

	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.ToggleVisibility(context.Background(), "never_registered")
	c.Close()

	if store.replaced() != 0 {
		t.Fatalf("no-op toggle must not persist, got %d replace calls", store.replaced())
	}
}

func TestMutationBeforeLoadIsNoOp(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store, salesViewer())

	c.ToggleVisibility(context.Background(), "tasks")
	c.Reorder(context.Background(), []string{"tasks"})
	c.Close()

	if store.replaced() != 0 {
		t.Fatalf("mutations before load must not persist, got %d", store.replaced())
	}
	if _, ok := c.Preferences(); ok {
		t.Fatal("expected no preferences before load")
	}
}

func TestSaveFailureKeepsOptimisticState(t *testing.T) {
	store := newFakeStore()
	store.docs["user-1"] = Preferences{Widgets: []WidgetPlacement{{ID: "tasks", Visible: true, Order: 0}}}
	store.replaceErr = errors.New("write refused")

	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.ToggleVisibility(context.Background(), "tasks")
	c.Close()

	if c.IsVisible("tasks") {
		t.Fatal("local state must stay authoritative when the save fails")
	}
	if c.Saving() {
		t.Fatal("saving indicator must clear after the failed write settles")
	}

	// A fresh session over the same store sees the last persisted document,
	// not the optimistic state that never made it out.
	refreshed := newTestController(store, salesViewer())
	refreshed.Load(context.Background())
	defer refreshed.Close()
	if !refreshed.IsVisible("tasks") {
		t.Fatal("reload must revert to the last successfully persisted document")
	}
}

func TestIsVisibleDefaultsTrueForUnrecordedID(t *testing.T) {
	store := newFakeStore()
	store.docs["user-1"] = Preferences{Widgets: []WidgetPlacement{
		{ID: "pipeline_overview", Visible: true, Order: 0},
	}}

	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	defer c.Close()

	if !c.IsVisible("tasks") {
		t.Fatal("ids absent from a loaded document must default to visible")
	}
	if !c.IsVisible("no_such_widget") {
		t.Fatal("unknown ids must default to visible")
	}
}

func TestSavingIndicatorDuringWrite(t *testing.T) {
	store := newFakeStore()
	store.docs["user-1"] = Preferences{Widgets: []WidgetPlacement{{ID: "tasks", Visible: true, Order: 0}}}
	c := newTestController(store, salesViewer())
	c.Load(context.Background())

	gate := make(chan struct{})
	store.replaceGate = gate
	c.ToggleVisibility(context.Background(), "tasks")

	if !c.Saving() {
		t.Fatal("expected saving indicator while write is in flight")
	}
	close(gate)
	c.Close()
	if c.Saving() {
		t.Fatal("expected saving indicator to clear")
	}
}

func TestReorderAssignsIndexesAndPreservesUnlisted(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.Close()

	c.Reorder(context.Background(), []string{"tasks", "pipeline_overview", "quote_activity", "revenue_trend"})
	c.Close()

	got := widgetIDs(c.AccessibleWidgets())
	want := []string{"tasks", "pipeline_overview", "quote_activity", "revenue_trend"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}

	// placements outside the list keep their previous order and visibility
	prefs, _ := c.Preferences()
	placement, ok := prefs.Placement("partner_leaderboard")
	if !ok || placement.Visible || placement.Order != 6 {
		t.Fatalf("unlisted placement must be preserved, got %#v ok=%v", placement, ok)
	}
}

func TestReorderAppendsUnknownPlacements(t *testing.T) {
	store := newFakeStore()
	store.docs["user-1"] = Preferences{Widgets: []WidgetPlacement{
		{ID: "pipeline_overview", Visible: true, Order: 0},
	}}

	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.Reorder(context.Background(), []string{"tasks", "pipeline_overview"})
	c.Close()

	prefs, _ := c.Preferences()
	placement, ok := prefs.Placement("tasks")
	if !ok || !placement.Visible || placement.Order != 0 {
		t.Fatalf("expected new placement created visible at index 0, got %#v ok=%v", placement, ok)
	}
}

func TestReorderEmptyListIsNoOp(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.Close()
	saves := store.replaced()

	c.Reorder(context.Background(), nil)
	c.Close()
	if store.replaced() != saves {
		t.Fatal("empty reorder must not persist")
	}
}

func TestResetToDefaults(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.ToggleVisibility(context.Background(), "tasks")
	c.Reorder(context.Background(), []string{"revenue_trend", "pipeline_overview"})
	c.ResetToDefaults(context.Background())
	c.Close()

	prefs, _ := c.Preferences()
	defaults := NewRegistry().DefaultPreferences()
	if len(prefs.Widgets) != len(defaults.Widgets) {
		t.Fatalf("expected %d default placements, got %d", len(defaults.Widgets), len(prefs.Widgets))
	}
	for i, want := range defaults.Widgets {
		got := prefs.Widgets[i]
		if got.ID != want.ID || got.Visible != want.Visible || got.Order != want.Order {
			t.Fatalf("placement %d differs from defaults: got %#v want %#v", i, got, want)
		}
	}
}

func TestReplacePreferencesAdoptsDocumentWholesale(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.Close()

	doc := Preferences{Widgets: []WidgetPlacement{
		{ID: "tasks", Visible: false, Order: 0},
	}}
	c.ReplacePreferences(context.Background(), doc)
	c.Close()

	prefs, _ := c.Preferences()
	if len(prefs.Widgets) != 1 || prefs.Widgets[0].ID != "tasks" {
		t.Fatalf("expected wholesale replacement, got %#v", prefs.Widgets)
	}
	store.mu.Lock()
	persisted := store.lastReplaced.Clone()
	store.mu.Unlock()
	if len(persisted.Widgets) != 1 {
		t.Fatalf("expected replacement persisted, got %#v", persisted.Widgets)
	}
}

func TestNotifyHookReceivesMutationEvents(t *testing.T) {
	store := newFakeStore()
	hook := &captureHook{}
	c := NewController(ControllerOptions{Store: store, Viewer: salesViewer(), Notify: hook})
	c.Load(context.Background())
	c.ToggleVisibility(context.Background(), "tasks")
	c.Reorder(context.Background(), []string{"tasks", "pipeline_overview"})
	c.ResetToDefaults(context.Background())
	c.Close()

	events := hook.captured()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Reason != ReasonToggle || events[0].WidgetID != "tasks" {
		t.Fatalf("unexpected toggle event %#v", events[0])
	}
	if events[1].Reason != ReasonReorder || events[2].Reason != ReasonReset {
		t.Fatalf("unexpected event order %#v", events)
	}
	if events[0].UserID != "user-1" || events[0].Preferences.Empty() {
		t.Fatalf("event must carry user and document snapshot, got %#v", events[0])
	}
}

func TestNotifyHookFailureDoesNotBlockMutation(t *testing.T) {
	store := newFakeStore()
	hook := &captureHook{err: errors.New("sink down")}
	c := NewController(ControllerOptions{Store: store, Viewer: salesViewer(), Notify: hook})
	c.Load(context.Background())
	c.ToggleVisibility(context.Background(), "tasks")
	c.Close()

	if c.IsVisible("tasks") {
		t.Fatal("hook failure must not undo the mutation")
	}
}

func TestSetViewChangesDerivationOnly(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	c.Close()
	saves := store.replaced()

	c.SetView(ViewPostsales)
	got := widgetIDs(c.AccessibleWidgets())
	want := []string{"revenue_trend", "tasks", "renewals_due"}
	if len(got) != len(want) {
		t.Fatalf("expected %v after view switch, got %v", want, got)
	}
	if store.replaced() != saves {
		t.Fatal("switching views must not persist anything")
	}
}

func TestPreferencesSnapshotIsIsolated(t *testing.T) {
	store := newFakeStore()
	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	defer c.Close()

	snapshot, _ := c.Preferences()
	snapshot.Widgets[0].Visible = false
	snapshot.Widgets[0].Order = 99

	fresh, _ := c.Preferences()
	if !fresh.Widgets[0].Visible || fresh.Widgets[0].Order == 99 {
		t.Fatal("mutating a snapshot must not leak into controller state")
	}
}

func TestSaveTimeoutDefault(t *testing.T) {
	c := NewController(ControllerOptions{Viewer: salesViewer()})
	if c.opts.SaveTimeout != defaultSaveTimeout {
		t.Fatalf("expected default save timeout, got %v", c.opts.SaveTimeout)
	}
	if c.SessionID() == "" {
		t.Fatal("expected generated session id")
	}
}

func TestLastModifiedIsObservabilityOnly(t *testing.T) {
	store := newFakeStore()
	stale := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	store.docs["user-1"] = Preferences{
		Widgets:      []WidgetPlacement{{ID: "tasks", Visible: true}},
		LastModified: stale,
	}

	c := newTestController(store, salesViewer())
	c.Load(context.Background())
	defer c.Close()

	prefs, _ := c.Preferences()
	if !prefs.LastModified.Equal(stale) {
		t.Fatal("load must adopt the stored timestamp verbatim")
	}
}
