package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/listpal/listpal/internal/auth"
	"github.com/listpal/listpal/internal/database"
	"github.com/listpal/listpal/internal/list"
	"github.com/listpal/listpal/internal/model"
	"github.com/listpal/listpal/internal/store"
)

type handlerFixture struct {
	list       *ListHandler
	user       *UserHandler
	containers *store.ContainerStore
}

func setupHandlers(t *testing.T) *handlerFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	lists := store.NewListStore(db)
	containers := store.NewContainerStore(db)
	users := store.NewUserStore(db)
	logger := slog.New(slog.DiscardHandler)
	svc := list.NewService(lists, containers, logger)
	gate := auth.NewGate(containers, lists)
	provider := auth.NewProvider([]byte("test-secret"), time.Hour)

	return &handlerFixture{
		list:       NewListHandler(svc, gate, users, nil, logger),
		user:       NewUserHandler(users, containers, provider, logger),
		containers: containers,
	}
}

func (f *handlerFixture) registerUser(t *testing.T, username string) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := jsonRequest(t, "POST", "/api/users", map[string]string{"username": username})
	f.user.Register(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("register %s: status = %d, body = %s", username, rec.Code, rec.Body.String())
	}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return httptest.NewRequest(method, target, bytes.NewReader(buf))
}

func asUser(r *http.Request, username string) *http.Request {
	return r.WithContext(auth.WithSubject(r.Context(), auth.Subject{Username: username}))
}

func TestCreateListHandler(t *testing.T) {
	f := setupHandlers(t)
	f.registerUser(t, "alice")
	containerID := model.ContainerID("alice", model.KindGrocery)

	rec := httptest.NewRecorder()
	req := asUser(jsonRequest(t, "POST", "/api/lists", map[string]any{
		"container_id": containerID,
		"name":         "Weekly Shop",
		"scope":        "PRIVATE",
	}), "alice")
	f.list.CreateList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var ref model.ListRef
	if err := json.NewDecoder(rec.Body).Decode(&ref); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ref.ListName != "Weekly Shop" || ref.Scope != model.ScopePrivate {
		t.Errorf("ref = %+v, want created projection", ref)
	}
}

func TestCreateListHandlerForbidden(t *testing.T) {
	f := setupHandlers(t)
	f.registerUser(t, "alice")
	f.registerUser(t, "mallory")
	containerID := model.ContainerID("alice", model.KindGrocery)

	rec := httptest.NewRecorder()
	req := asUser(jsonRequest(t, "POST", "/api/lists", map[string]any{
		"container_id": containerID,
		"name":         "Sneaky",
	}), "mallory")
	f.list.CreateList(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCreateListHandlerNoSubject(t *testing.T) {
	f := setupHandlers(t)
	f.registerUser(t, "alice")

	rec := httptest.NewRecorder()
	req := jsonRequest(t, "POST", "/api/lists", map[string]any{
		"container_id": model.ContainerID("alice", model.KindGrocery),
		"name":         "Shop",
	})
	f.list.CreateList(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGetListDeclaredScopeMismatch(t *testing.T) {
	f := setupHandlers(t)
	f.registerUser(t, "alice")
	containerID := model.ContainerID("alice", model.KindGrocery)
	ref := createList(t, f, "alice", containerID, "Mine", "PRIVATE")

	// Declaring PUBLIC skips the ownership gate but the facade still rejects
	// the mismatch against the stored scope.
	rec := httptest.NewRecorder()
	req := asUser(jsonRequest(t, "POST", "/api/lists/fetch", map[string]any{
		"container_id": containerID,
		"list_id":      ref.ListID,
		"scope":        "PUBLIC",
	}), "alice")
	f.list.GetList(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func createList(t *testing.T, f *handlerFixture, username, containerID, name string, scope model.Scope) model.ListRef {
	t.Helper()
	rec := httptest.NewRecorder()
	req := asUser(jsonRequest(t, "POST", "/api/lists", map[string]any{
		"container_id": containerID,
		"name":         name,
		"scope":        scope,
	}), username)
	f.list.CreateList(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create list: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var ref model.ListRef
	if err := json.NewDecoder(rec.Body).Decode(&ref); err != nil {
		t.Fatalf("decode ref: %v", err)
	}
	return ref
}

func TestUpdateItemRequiresPreviousID(t *testing.T) {
	f := setupHandlers(t)
	f.registerUser(t, "alice")
	containerID := model.ContainerID("alice", model.KindGrocery)
	ref := createList(t, f, "alice", containerID, "Shop", "PRIVATE")

	rec := httptest.NewRecorder()
	req := asUser(jsonRequest(t, "PUT", "/api/lists/items", map[string]any{
		"container_id": containerID,
		"list_id":      ref.ListID,
		"name":         "Milk",
		"scope":        "PRIVATE",
	}), "alice")
	f.list.UpdateItem(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRestrictedFlowThroughHandlers(t *testing.T) {
	f := setupHandlers(t)
	f.registerUser(t, "alice")
	f.registerUser(t, "bob")
	containerID := model.ContainerID("alice", model.KindGrocery)
	ref := createList(t, f, "alice", containerID, "Shared", "RESTRICTED")

	// Share with bob.
	rec := httptest.NewRecorder()
	req := asUser(jsonRequest(t, "POST", "/api/lists/people", map[string]any{
		"container_id": containerID,
		"list_id":      ref.ListID,
		"people":       []string{"bob"},
	}), "alice")
	f.list.AddPeople(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("add people: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Bob, now a member, can fetch with declared RESTRICTED scope.
	rec = httptest.NewRecorder()
	req = asUser(jsonRequest(t, "POST", "/api/lists/fetch", map[string]any{
		"container_id": containerID,
		"list_id":      ref.ListID,
		"scope":        "RESTRICTED",
	}), "bob")
	f.list.GetList(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bob fetch: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Carol is not a member.
	rec = httptest.NewRecorder()
	req = asUser(jsonRequest(t, "POST", "/api/lists/fetch", map[string]any{
		"container_id": containerID,
		"list_id":      ref.ListID,
		"scope":        "RESTRICTED",
	}), "carol")
	f.list.GetList(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("carol fetch: status = %d, want 401", rec.Code)
	}

	// Bob's container received the projected ref.
	bobC, _ := f.containers.GetByID(model.ContainerID("bob", model.KindGrocery))
	if len(bobC.Refs) != 1 || bobC.Refs[0].ListID != ref.ListID {
		t.Errorf("bob refs = %+v, want the shared ref", bobC.Refs)
	}
}

func TestGetPublicListHandler(t *testing.T) {
	f := setupHandlers(t)
	f.registerUser(t, "alice")
	containerID := model.ContainerID("alice", model.KindGrocery)
	pub := createList(t, f, "alice", containerID, "Open List", "PUBLIC")
	priv := createList(t, f, "alice", containerID, "Secret List", "PRIVATE")

	// No subject in context: the id pair alone dereferences a PUBLIC list.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/public/shared/get-list?container_id="+containerID+"&list_id="+pub.ListID, nil)
	f.list.GetPublicList(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var l model.List
	if err := json.NewDecoder(rec.Body).Decode(&l); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if l.Name != "Open List" {
		t.Errorf("name = %q, want %q", l.Name, "Open List")
	}

	// A PRIVATE list never leaks through the public endpoint.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/public/shared/get-list?container_id="+containerID+"&list_id="+priv.ListID, nil)
	f.list.GetPublicList(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("private via public endpoint: status = %d, want 401", rec.Code)
	}
}

func TestDeleteListPublicIsOwnerOnly(t *testing.T) {
	f := setupHandlers(t)
	f.registerUser(t, "alice")
	f.registerUser(t, "mallory")
	containerID := model.ContainerID("alice", model.KindGrocery)
	ref := createList(t, f, "alice", containerID, "Open List", "PUBLIC")

	// Knowing the id pair dereferences a PUBLIC list; it must not delete it.
	rec := httptest.NewRecorder()
	req := asUser(jsonRequest(t, "DELETE", "/api/lists", map[string]any{
		"container_id": containerID,
		"list_id":      ref.ListID,
		"scope":        "PUBLIC",
	}), "mallory")
	f.list.DeleteList(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("mallory delete: status = %d, want 401", rec.Code)
	}

	aliceC, _ := f.containers.GetByID(containerID)
	if len(aliceC.Refs) != 1 {
		t.Fatalf("alice refs = %d, want the list to survive", len(aliceC.Refs))
	}

	// The owner still can.
	rec = httptest.NewRecorder()
	req = asUser(jsonRequest(t, "DELETE", "/api/lists", map[string]any{
		"container_id": containerID,
		"list_id":      ref.ListID,
		"scope":        "PUBLIC",
	}), "alice")
	f.list.DeleteList(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestResetListPublicIsOwnerOnly(t *testing.T) {
	f := setupHandlers(t)
	f.registerUser(t, "alice")
	f.registerUser(t, "mallory")
	containerID := model.ContainerID("alice", model.KindGrocery)
	ref := createList(t, f, "alice", containerID, "Open List", "PUBLIC")

	rec := httptest.NewRecorder()
	req := asUser(jsonRequest(t, "POST", "/api/lists/items", map[string]any{
		"container_id": containerID,
		"list_id":      ref.ListID,
		"name":         "Milk",
		"scope":        "PUBLIC",
	}), "alice")
	f.list.CreateItem(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("add item: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = asUser(jsonRequest(t, "POST", "/api/lists/reset", map[string]any{
		"container_id": containerID,
		"list_id":      ref.ListID,
		"scope":        "PUBLIC",
	}), "mallory")
	f.list.ResetList(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("mallory reset: status = %d, want 401", rec.Code)
	}

	// The item survives the rejected reset.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/public/shared/get-list?container_id="+containerID+"&list_id="+ref.ListID, nil)
	f.list.GetPublicList(rec, req)
	var l model.List
	if err := json.NewDecoder(rec.Body).Decode(&l); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(l.Items) != 1 {
		t.Errorf("items = %d, want 1 after rejected reset", len(l.Items))
	}
}

func TestDeleteListHandlerBranchesOnScope(t *testing.T) {
	f := setupHandlers(t)
	f.registerUser(t, "alice")
	f.registerUser(t, "bob")
	containerID := model.ContainerID("alice", model.KindGrocery)
	ref := createList(t, f, "alice", containerID, "Shared", "RESTRICTED")

	rec := httptest.NewRecorder()
	req := asUser(jsonRequest(t, "POST", "/api/lists/people", map[string]any{
		"container_id": containerID,
		"list_id":      ref.ListID,
		"people":       []string{"bob"},
	}), "alice")
	f.list.AddPeople(rec, req)

	// Bob deletes from his own container: only his access goes.
	bobContainer := model.ContainerID("bob", model.KindGrocery)
	rec = httptest.NewRecorder()
	req = asUser(jsonRequest(t, "DELETE", "/api/lists", map[string]any{
		"container_id": bobContainer,
		"list_id":      ref.ListID,
		"scope":        "RESTRICTED",
	}), "bob")
	f.list.DeleteList(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bob delete: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	aliceC, _ := f.containers.GetByID(containerID)
	if len(aliceC.Refs) != 1 {
		t.Errorf("alice refs = %d, want list to survive member leave", len(aliceC.Refs))
	}
	bobC, _ := f.containers.GetByID(bobContainer)
	if len(bobC.Refs) != 0 {
		t.Errorf("bob refs = %d, want 0", len(bobC.Refs))
	}
}
