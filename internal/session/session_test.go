package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kokistudios/cardbox/internal/deck"
	"github.com/kokistudios/cardbox/internal/savefile"
	"github.com/kokistudios/cardbox/internal/store"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".cardbox")
	if err := store.Init(dir, false); err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	s, err := store.Load(dir)
	if err != nil {
		t.Fatalf("store.Load: %v", err)
	}
	return s
}

func createDeck(t *testing.T, st *store.Store, title string, opts ...CreateOption) *Session {
	t.Helper()
	sess, err := Create(st.ResolveDeck(title), title, st.Config, opts...)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return sess
}

func TestCreate(t *testing.T) {
	st := setupStore(t)
	sess := createDeck(t, st, "Spanish")

	if _, err := os.Stat(sess.Path()); err != nil {
		t.Fatalf("expected deck file at %s", sess.Path())
	}
	if sess.Snapshot().Title != "Spanish" {
		t.Errorf("unexpected title %q", sess.Snapshot().Title)
	}

	_, err := Create(sess.Path(), "Spanish", st.Config)
	if !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
}

func TestCreate_DefaultTitle(t *testing.T) {
	st := setupStore(t)
	sess, err := Create(st.ResolveDeck(""), "", st.Config)
	if err != nil {
		t.Fatal(err)
	}
	if got := sess.Snapshot().Title; got != "Cards" {
		t.Errorf("expected default title, got %q", got)
	}
}

func TestApply_Autosave(t *testing.T) {
	st := setupStore(t)
	sess := createDeck(t, st, "Bio")

	err := sess.Apply(func(s *deck.State) error {
		_, err := s.AddCard("#cell what?", "unit of life", deck.Easy)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if sess.Dirty() {
		t.Error("autosave should leave the session clean")
	}

	reopened, err := Open(sess.Path(), st.Config)
	if err != nil {
		t.Fatal(err)
	}
	cards := reopened.Snapshot().Cards
	if len(cards) != 1 || cards[0].Front != "#cell what?" {
		t.Errorf("expected saved card, got %+v", cards)
	}
}

func TestApply_NoAutosave(t *testing.T) {
	st := setupStore(t)
	sess := createDeck(t, st, "Bio", WithAutosave(false))

	sess.Apply(func(s *deck.State) error {
		s.Add()
		return nil
	})
	if !sess.Dirty() {
		t.Error("expected unsaved changes")
	}
	reopened, _ := Open(sess.Path(), st.Config)
	if reopened.Snapshot().Len() != 0 {
		t.Error("nothing should be on disk before Save")
	}

	if err := sess.Save(); err != nil {
		t.Fatal(err)
	}
	reopened, _ = Open(sess.Path(), st.Config)
	if reopened.Snapshot().Len() != 1 {
		t.Error("expected card on disk after Save")
	}
}

func TestApply_ErrorLeavesStateUntouched(t *testing.T) {
	st := setupStore(t)
	sess := createDeck(t, st, "Bio")
	boom := errors.New("boom")

	err := sess.Apply(func(s *deck.State) error {
		s.Add()
		s.SetTitle("changed")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	snap := sess.Snapshot()
	if snap.Len() != 0 || snap.Title != "Bio" {
		t.Errorf("failed mutation leaked into state: %+v", snap)
	}
}

func TestApply_SaveFailureRollsBack(t *testing.T) {
	st := setupStore(t)
	sess := createDeck(t, st, "Bio")

	dir := filepath.Dir(sess.Path())
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("not a directory"), 0644); err != nil {
		t.Fatal(err)
	}

	err := sess.Apply(func(s *deck.State) error {
		_, err := s.AddCard("hola", "hello", deck.Easy)
		return err
	})
	if err == nil {
		t.Fatal("expected the save to fail")
	}
	if snap := sess.Snapshot(); snap.Len() != 0 {
		t.Errorf("unsaved mutation stayed live: %d cards", snap.Len())
	}
	if sess.Dirty() {
		t.Error("rollback should restore the clean flag")
	}
}

func TestSnapshot_IsolatedFromLaterMutations(t *testing.T) {
	st := setupStore(t)
	sess := createDeck(t, st, "Bio")
	before := sess.Snapshot()

	sess.Apply(func(s *deck.State) error {
		s.Add()
		return nil
	})
	if before.Len() != 0 {
		t.Error("snapshot changed after Apply")
	}
}

func TestUndoThroughSession(t *testing.T) {
	st := setupStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sess := createDeck(t, st, "Bio", WithClock(func() time.Time { return now }))

	var card deck.Card
	sess.Apply(func(s *deck.State) error {
		var err error
		card, err = s.AddCard("a", "b", deck.Hard)
		return err
	})

	var d deck.Deletion
	sess.Apply(func(s *deck.State) error {
		d, _ = s.Delete(card.ID)
		return nil
	})

	now = now.Add(time.Second)
	err := sess.Apply(func(s *deck.State) error {
		_, err := s.Undo(d.NotificationID)
		return err
	})
	if err != nil {
		t.Fatalf("undo within window failed: %v", err)
	}
	if sess.Snapshot().Len() != 1 {
		t.Error("expected card restored")
	}
}

func TestSaveAs(t *testing.T) {
	st := setupStore(t)
	sess := createDeck(t, st, "Bio")
	target := filepath.Join(t.TempDir(), "copy.json")

	if err := sess.SaveAs(target); err != nil {
		t.Fatal(err)
	}
	if sess.Path() != target {
		t.Errorf("expected path %s, got %s", target, sess.Path())
	}
	if _, err := os.Stat(target); err != nil {
		t.Error("expected file at new path")
	}
}

func TestReload(t *testing.T) {
	st := setupStore(t)
	sess := createDeck(t, st, "Bio")

	other := filepath.Join(t.TempDir(), "other.json")
	doc := savefile.Document{BoxTitle: "Other", Cards: []deck.Card{{ID: "x", Front: "f", Back: "b", Category: deck.Medium}}}
	if err := savefile.WriteFile(other, doc); err != nil {
		t.Fatal(err)
	}

	if err := sess.Reload(other); err != nil {
		t.Fatal(err)
	}
	snap := sess.Snapshot()
	if snap.Title != "Other" || snap.Len() != 1 || sess.Path() != other {
		t.Errorf("reload did not replace state: %+v", snap)
	}
}

func TestReload_FailureKeepsState(t *testing.T) {
	st := setupStore(t)
	sess := createDeck(t, st, "Bio")
	path := sess.Path()

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte(`{"boxTitle": "x", "cards": [{"id": "1"}]}`), 0644)

	err := sess.Reload(bad)
	var pe *savefile.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if sess.Snapshot().Title != "Bio" || sess.Path() != path {
		t.Error("failed reload changed the session")
	}
}

func TestOpenOrCreate(t *testing.T) {
	st := setupStore(t)
	path := st.ResolveDeck("New")

	sess, err := OpenOrCreate(path, "New", st.Config)
	if err != nil {
		t.Fatal(err)
	}
	sess.Apply(func(s *deck.State) error {
		s.Add()
		return nil
	})

	again, err := OpenOrCreate(path, "New", st.Config)
	if err != nil {
		t.Fatal(err)
	}
	if again.Snapshot().Len() != 1 {
		t.Error("expected existing deck to be opened")
	}
}

func TestApply_Concurrent(t *testing.T) {
	st := setupStore(t)
	sess := createDeck(t, st, "Bio", WithAutosave(false))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess.Apply(func(s *deck.State) error {
				_, err := s.AddCard(fmt.Sprintf("card %d", i), "", deck.Hard)
				return err
			})
		}(i)
	}
	wg.Wait()

	snap := sess.Snapshot()
	if snap.Len() != 20 {
		t.Errorf("expected 20 cards, got %d", snap.Len())
	}
	if err := snap.Validate(); err != nil {
		t.Error(err)
	}
}

func TestOpenWith(t *testing.T) {
	st := setupStore(t)
	sess := createDeck(t, st, "Bio")
	ctx := context.Background()

	other := filepath.Join(t.TempDir(), "other.json")
	savefile.WriteFile(other, savefile.Document{BoxTitle: "Other", Cards: []deck.Card{}})

	cancelled := savefile.PickerFunc(func(context.Context) (string, bool, error) { return "", false, nil })
	opened, err := sess.OpenWith(ctx, cancelled)
	if err != nil || opened {
		t.Fatalf("cancelled pick should be a no-op, got %v %v", opened, err)
	}
	if sess.Snapshot().Title != "Bio" {
		t.Error("cancelled pick changed the state")
	}

	picked := savefile.PickerFunc(func(context.Context) (string, bool, error) { return other, true, nil })
	opened, err = sess.OpenWith(ctx, picked)
	if err != nil || !opened {
		t.Fatalf("expected deck to open, got %v %v", opened, err)
	}
	if sess.Snapshot().Title != "Other" || sess.Path() != other {
		t.Error("expected state replaced by picked deck")
	}
}
