package store

import (
	"testing"

	"github.com/listpal/listpal/internal/database"
	"github.com/listpal/listpal/internal/model"
)

func setupTestDB(t *testing.T) (*ListStore, *ContainerStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewListStore(db), NewContainerStore(db), NewUserStore(db)
}

func newTestList(owner string, kind model.Kind, name string) *model.List {
	containerID := model.ContainerID(owner, kind)
	return &model.List{
		ID:          model.NewListID(containerID),
		Kind:        kind,
		Name:        name,
		Scope:       model.ScopePrivate,
		ContainerID: containerID,
		Members:     []string{owner},
	}
}

func TestListCreateAndGet(t *testing.T) {
	ls, _, _ := setupTestDB(t)

	list := newTestList("alice", model.KindGrocery, "Weekly Shop")
	list.Items = []model.Item{
		{ID: model.NewItemID(), ListID: list.ID, Name: "Milk", Category: "Dairy", Quantity: 1, AddedBy: "alice"},
		{ID: model.NewItemID(), ListID: list.ID, Name: "Bread", Category: "Bakery", Quantity: 2, AddedBy: "alice"},
	}

	if err := ls.Create(list); err != nil {
		t.Fatalf("create list: %v", err)
	}

	got, err := ls.GetByID(list.ID)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if got == nil {
		t.Fatal("expected list, got nil")
	}
	if got.Name != "Weekly Shop" {
		t.Errorf("name = %q, want %q", got.Name, "Weekly Shop")
	}
	if got.Scope != model.ScopePrivate {
		t.Errorf("scope = %q, want %q", got.Scope, model.ScopePrivate)
	}
	if len(got.Members) != 1 || got.Members[0] != "alice" {
		t.Errorf("members = %v, want [alice]", got.Members)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got.Items))
	}
	if got.Items[0].Name != "Milk" || got.Items[1].Name != "Bread" {
		t.Errorf("item order = [%q %q], want [Milk Bread]", got.Items[0].Name, got.Items[1].Name)
	}
}

func TestListGetByIDNotFound(t *testing.T) {
	ls, _, _ := setupTestDB(t)

	got, err := ls.GetByID("alice-GROCERY-nope")
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent list")
	}
}

func TestListDeleteCascades(t *testing.T) {
	ls, _, _ := setupTestDB(t)

	list := newTestList("alice", model.KindTodo, "Chores")
	list.Items = []model.Item{{ID: model.NewItemID(), ListID: list.ID, Name: "Vacuum", AddedBy: "alice"}}
	if err := ls.Create(list); err != nil {
		t.Fatalf("create list: %v", err)
	}

	if err := ls.Delete(list.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}

	got, err := ls.GetByID(list.ID)
	if err != nil {
		t.Fatalf("get deleted list: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}

	members, err := ls.GetMembers(list.ID)
	if err != nil {
		t.Fatalf("get members: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("expected 0 members after cascade, got %d", len(members))
	}
}

func TestAddMembersIdempotent(t *testing.T) {
	ls, _, _ := setupTestDB(t)

	list := newTestList("alice", model.KindGrocery, "Shared")
	if err := ls.Create(list); err != nil {
		t.Fatalf("create list: %v", err)
	}

	if err := ls.AddMembers(list.ID, []string{"bob", "carol"}); err != nil {
		t.Fatalf("add members: %v", err)
	}
	// Re-adding the same people does not duplicate them.
	if err := ls.AddMembers(list.ID, []string{"bob", "carol"}); err != nil {
		t.Fatalf("re-add members: %v", err)
	}

	members, err := ls.GetMembers(list.ID)
	if err != nil {
		t.Fatalf("get members: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d: %v", len(members), members)
	}
}

func TestRemoveMembers(t *testing.T) {
	ls, _, _ := setupTestDB(t)

	list := newTestList("alice", model.KindGrocery, "Shared")
	list.Members = []string{"alice", "bob", "carol"}
	if err := ls.Create(list); err != nil {
		t.Fatalf("create list: %v", err)
	}

	if err := ls.RemoveMembers(list.ID, []string{"bob", "carol"}); err != nil {
		t.Fatalf("remove members: %v", err)
	}

	members, _ := ls.GetMembers(list.ID)
	if len(members) != 1 || members[0] != "alice" {
		t.Errorf("members = %v, want [alice]", members)
	}

	// Removing nobody is a no-op.
	if err := ls.RemoveMembers(list.ID, nil); err != nil {
		t.Fatalf("remove empty: %v", err)
	}
}

func TestSetMembersReplacesSet(t *testing.T) {
	ls, _, _ := setupTestDB(t)

	list := newTestList("alice", model.KindGrocery, "Shared")
	list.Members = []string{"alice", "bob", "carol"}
	if err := ls.Create(list); err != nil {
		t.Fatalf("create list: %v", err)
	}

	if err := ls.SetMembers(list.ID, []string{"alice"}); err != nil {
		t.Fatalf("set members: %v", err)
	}

	members, _ := ls.GetMembers(list.ID)
	if len(members) != 1 || members[0] != "alice" {
		t.Errorf("members = %v, want [alice]", members)
	}
}

func TestAddItemAppendsAtEnd(t *testing.T) {
	ls, _, _ := setupTestDB(t)

	list := newTestList("alice", model.KindGrocery, "Shop")
	if err := ls.Create(list); err != nil {
		t.Fatalf("create list: %v", err)
	}

	for _, name := range []string{"Milk", "Eggs", "Butter"} {
		item := &model.Item{ID: model.NewItemID(), ListID: list.ID, Name: name, AddedBy: "alice"}
		if err := ls.AddItem(item); err != nil {
			t.Fatalf("add item %q: %v", name, err)
		}
	}

	got, _ := ls.GetByID(list.ID)
	if len(got.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got.Items))
	}
	for i, want := range []string{"Milk", "Eggs", "Butter"} {
		if got.Items[i].Name != want {
			t.Errorf("items[%d].Name = %q, want %q", i, got.Items[i].Name, want)
		}
	}
}

func TestSetItemsCheckedToggles(t *testing.T) {
	ls, _, _ := setupTestDB(t)

	list := newTestList("alice", model.KindGrocery, "Shop")
	if err := ls.Create(list); err != nil {
		t.Fatalf("create list: %v", err)
	}

	a := &model.Item{ID: model.NewItemID(), ListID: list.ID, Name: "Milk", AddedBy: "alice"}
	b := &model.Item{ID: model.NewItemID(), ListID: list.ID, Name: "Eggs", AddedBy: "alice"}
	ls.AddItem(a)
	ls.AddItem(b)

	count, err := ls.SetItemsChecked(list.ID, []string{a.ID})
	if err != nil {
		t.Fatalf("check items: %v", err)
	}
	if count != 1 {
		t.Errorf("affected = %d, want 1", count)
	}

	got, _ := ls.GetItemByID(list.ID, a.ID)
	if !got.Checked {
		t.Error("expected item checked after toggle")
	}
	other, _ := ls.GetItemByID(list.ID, b.ID)
	if other.Checked {
		t.Error("untouched item should stay unchecked")
	}

	// Toggling again unchecks.
	if _, err := ls.SetItemsChecked(list.ID, []string{a.ID}); err != nil {
		t.Fatalf("uncheck items: %v", err)
	}
	got, _ = ls.GetItemByID(list.ID, a.ID)
	if got.Checked {
		t.Error("expected item unchecked after second toggle")
	}
}

func TestSetItemsCheckedEmptyNoOp(t *testing.T) {
	ls, _, _ := setupTestDB(t)

	list := newTestList("alice", model.KindGrocery, "Shop")
	if err := ls.Create(list); err != nil {
		t.Fatalf("create list: %v", err)
	}

	count, err := ls.SetItemsChecked(list.ID, nil)
	if err != nil {
		t.Fatalf("check items: %v", err)
	}
	if count != 0 {
		t.Errorf("affected = %d, want 0", count)
	}
}

func TestResetItems(t *testing.T) {
	ls, _, _ := setupTestDB(t)

	list := newTestList("alice", model.KindWishlist, "Gifts")
	if err := ls.Create(list); err != nil {
		t.Fatalf("create list: %v", err)
	}
	ls.AddItem(&model.Item{ID: model.NewItemID(), ListID: list.ID, Name: "Book", AddedBy: "alice"})
	ls.AddItem(&model.Item{ID: model.NewItemID(), ListID: list.ID, Name: "Socks", AddedBy: "alice"})

	if err := ls.ResetItems(list.ID); err != nil {
		t.Fatalf("reset items: %v", err)
	}

	got, _ := ls.GetByID(list.ID)
	if len(got.Items) != 0 {
		t.Errorf("expected 0 items after reset, got %d", len(got.Items))
	}
	// The list row itself survives a reset.
	if got.Name != "Gifts" {
		t.Errorf("name = %q, want %q", got.Name, "Gifts")
	}
}

func TestDeleteItemByID(t *testing.T) {
	ls, _, _ := setupTestDB(t)

	list := newTestList("alice", model.KindGrocery, "Shop")
	if err := ls.Create(list); err != nil {
		t.Fatalf("create list: %v", err)
	}
	item := &model.Item{ID: model.NewItemID(), ListID: list.ID, Name: "Milk", AddedBy: "alice"}
	ls.AddItem(item)

	if err := ls.DeleteItemByID(list.ID, item.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	got, err := ls.GetItemByID(list.ID, item.ID)
	if err != nil {
		t.Fatalf("get deleted item: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted item")
	}
}

func TestSetNameAndScope(t *testing.T) {
	ls, _, _ := setupTestDB(t)

	list := newTestList("alice", model.KindGrocery, "Old Name")
	if err := ls.Create(list); err != nil {
		t.Fatalf("create list: %v", err)
	}

	if err := ls.SetName(list.ID, "New Name"); err != nil {
		t.Fatalf("set name: %v", err)
	}
	if err := ls.SetScope(list.ID, model.ScopeRestricted); err != nil {
		t.Fatalf("set scope: %v", err)
	}

	got, _ := ls.GetByID(list.ID)
	if got.Name != "New Name" {
		t.Errorf("name = %q, want %q", got.Name, "New Name")
	}
	if got.Scope != model.ScopeRestricted {
		t.Errorf("scope = %q, want %q", got.Scope, model.ScopeRestricted)
	}
}
