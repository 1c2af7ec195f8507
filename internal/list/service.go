package list

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/listpal/listpal/internal/model"
	"github.com/listpal/listpal/internal/store"
)

const maxNameLength = 100

// Service is the list facade and reference sync engine. Every operation that
// touches a list and one or more containers runs as an ordered sequence of
// independent writes; there is no cross-collection transaction, and a crash
// between steps leaves at worst a stale ref that 404s on dereference.
type Service struct {
	lists      *store.ListStore
	containers *store.ContainerStore
	logger     *slog.Logger
}

func NewService(lists *store.ListStore, containers *store.ContainerStore, logger *slog.Logger) *Service {
	return &Service{lists: lists, containers: containers, logger: logger}
}

func cleanName(name string) (string, *Error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationf("name is required")
	}
	if len(name) > maxNameLength {
		return "", validationf("name exceeds %d characters", maxNameLength)
	}
	return name, nil
}

// authorizedList loads a list and verifies the caller-supplied container id
// and declared scope against stored state. The declared scope comes from the
// request payload; a mismatch with the stored scope is an authorization
// failure, not a validation one.
func (s *Service) authorizedList(containerID, listID string, scope model.Scope) (*model.List, *Error) {
	l, err := s.lists.GetByID(listID)
	if err != nil {
		return nil, storeErr("get list", err)
	}
	if l == nil {
		return nil, notFoundf("no list was found that matches id: %s", listID)
	}
	if l.ContainerID != containerID {
		return nil, authf("no list was found that matches container id: %s", containerID)
	}
	if l.Scope != scope {
		return nil, scopeMismatch()
	}
	return l, nil
}

// CreateList allocates a list owned by the container, with the owner as sole
// member, and its first ref inside the owning container. Two writes, list
// first; no fan-out is needed for a single reference.
func (s *Service) CreateList(containerID, name string, scope model.Scope) (*model.ListRef, error) {
	name, verr := cleanName(name)
	if verr != nil {
		return nil, verr
	}
	if scope == "" {
		scope = model.ScopePrivate
	}
	if !scope.Valid() {
		return nil, validationf("invalid scope: %s", scope)
	}

	container, err := s.containers.GetByID(containerID)
	if err != nil {
		return nil, storeErr("get container", err)
	}
	if container == nil {
		return nil, notFoundf("not a valid container id given")
	}

	l := &model.List{
		ID:          model.NewListID(containerID),
		Kind:        container.Kind,
		Name:        name,
		Scope:       scope,
		ContainerID: containerID,
		Members:     []string{container.OwnerUsername},
	}
	if err := s.lists.Create(l); err != nil {
		return nil, storeErr("create list", err)
	}

	ref := model.ListRef{ListID: l.ID, ListName: l.Name, Scope: l.Scope, Reference: containerID}
	if err := s.containers.AddRef(containerID, ref); err != nil {
		return nil, storeErr("add ref", err)
	}
	return &ref, nil
}

// FetchAllLists returns the container with its ordered refs.
func (s *Service) FetchAllLists(containerID string) (*model.Container, error) {
	container, err := s.containers.GetByID(containerID)
	if err != nil {
		return nil, storeErr("get container", err)
	}
	if container == nil {
		return nil, notFoundf("no container was found that matches id: %s", containerID)
	}
	return container, nil
}

// FetchList returns the full list after the container/scope checks.
func (s *Service) FetchList(containerID, listID string, scope model.Scope) (*model.List, error) {
	l, verr := s.authorizedList(containerID, listID, scope)
	if verr != nil {
		return nil, verr
	}
	return l, nil
}

// AddItem appends an item to the list. The item id is assigned here; callers
// may only rely on it being unique within the list.
func (s *Service) AddItem(containerID string, item model.Item, scope model.Scope) (*model.Item, error) {
	name, verr := cleanName(item.Name)
	if verr != nil {
		return nil, verr
	}
	item.Name = name
	if item.Quantity < 0 {
		return nil, validationf("quantity cannot be negative")
	}

	if _, verr := s.authorizedList(containerID, item.ListID, scope); verr != nil {
		return nil, verr
	}
	if item.ID == "" {
		item.ID = model.NewItemID()
	}
	if err := s.lists.AddItem(&item); err != nil {
		return nil, storeErr("add item", err)
	}
	return &item, nil
}

// UpdateItem replaces the item identified by previousItemID with the given
// one. Last write wins; the replacement gets a fresh id.
func (s *Service) UpdateItem(containerID string, item model.Item, previousItemID string, scope model.Scope) (*model.Item, error) {
	name, verr := cleanName(item.Name)
	if verr != nil {
		return nil, verr
	}
	item.Name = name

	if _, verr := s.authorizedList(containerID, item.ListID, scope); verr != nil {
		return nil, verr
	}
	if err := s.lists.DeleteItemByID(item.ListID, previousItemID); err != nil {
		return nil, storeErr("delete item", err)
	}
	if item.ID == "" || item.ID == previousItemID {
		item.ID = model.NewItemID()
	}
	if err := s.lists.AddItem(&item); err != nil {
		return nil, storeErr("add item", err)
	}
	return &item, nil
}

// DeleteItem removes a single item from the list.
func (s *Service) DeleteItem(containerID, listID, itemID string, scope model.Scope) error {
	if _, verr := s.authorizedList(containerID, listID, scope); verr != nil {
		return verr
	}
	if err := s.lists.DeleteItemByID(listID, itemID); err != nil {
		return storeErr("delete item", err)
	}
	return nil
}

// CheckItems toggles the checked flag of every listed item, so the one bulk
// action serves both directions. An empty id set is a no-op success.
func (s *Service) CheckItems(containerID, listID string, itemIDs []string, scope model.Scope) error {
	if _, verr := s.authorizedList(containerID, listID, scope); verr != nil {
		return verr
	}
	if _, err := s.lists.SetItemsChecked(listID, itemIDs); err != nil {
		return storeErr("check items", err)
	}
	return nil
}

// ResetList clears every item and returns the emptied list.
func (s *Service) ResetList(containerID, listID string, scope model.Scope) (*model.List, error) {
	l, verr := s.authorizedList(containerID, listID, scope)
	if verr != nil {
		return nil, verr
	}
	if err := s.lists.ResetItems(listID); err != nil {
		return nil, storeErr("reset items", err)
	}
	l.Items = nil
	return l, nil
}

// UpdateList renames the list and, when the scope changes, un-shares it: the
// old ref is pulled from every current member's container in one batched
// write, membership collapses to the owner, and the owning container's ref is
// deleted and recreated with the new name and scope.
func (s *Service) UpdateList(containerID, listID, name string, scope model.Scope) (*model.List, error) {
	name, verr := cleanName(name)
	if verr != nil {
		return nil, verr
	}
	if !scope.Valid() {
		return nil, validationf("invalid scope: %s", scope)
	}

	l, err := s.lists.GetByID(listID)
	if err != nil {
		return nil, storeErr("get list", err)
	}
	if l == nil {
		return nil, notFoundf("no list was found that matches id: %s", listID)
	}
	if l.ContainerID != containerID {
		return nil, authf("no list was found that matches container id: %s", containerID)
	}
	container, err := s.containers.GetByID(containerID)
	if err != nil {
		return nil, storeErr("get container", err)
	}
	if container == nil {
		return nil, notFoundf("no container was found that matches id: %s", containerID)
	}

	scopeChanged := l.Scope != scope
	if scopeChanged && len(l.Members) > 1 {
		// Pull the old ref, structurally matched as read above, from every
		// member's container. Narrowing silently un-shares the list.
		s.logger.Debug("removing shared refs for scope change", "list_id", listID, "members", len(l.Members))
		oldRef := model.ListRef{ListID: l.ID, ListName: l.Name, Scope: l.Scope, Reference: containerID}
		if _, err := s.containers.BulkRemoveRef(l.Members, l.Kind, oldRef); err != nil {
			return nil, storeErr("bulk remove refs", err)
		}
	}
	if scopeChanged {
		if err := s.lists.SetMembers(listID, []string{container.OwnerUsername}); err != nil {
			return nil, storeErr("set members", err)
		}
		if err := s.lists.SetScope(listID, scope); err != nil {
			return nil, storeErr("set scope", err)
		}
	}
	if err := s.lists.SetName(listID, name); err != nil {
		return nil, storeErr("set name", err)
	}

	// Refs are never edited in place: delete then insert keeps the
	// denormalized name and scope correct.
	if err := s.containers.RemoveRefByID(containerID, listID); err != nil {
		return nil, storeErr("remove ref", err)
	}
	if err := s.containers.AddRef(containerID, model.ListRef{ListID: listID, ListName: name, Scope: scope, Reference: containerID}); err != nil {
		return nil, storeErr("add ref", err)
	}

	updated, err := s.lists.GetByID(listID)
	if err != nil {
		return nil, storeErr("get list", err)
	}
	return updated, nil
}

// AddPeople grants the given usernames access to a RESTRICTED list: one ref
// is upserted into each grantee's container of the list's kind as a single
// batched write, then the member set is united. Granting twice is a no-op.
func (s *Service) AddPeople(containerID, listID string, people []string) error {
	kind, ok := model.KindOfID(containerID)
	if !ok {
		return validationf("no list kind found in container id")
	}
	l, err := s.lists.GetByID(listID)
	if err != nil {
		return storeErr("get list", err)
	}
	if l == nil {
		return notFoundf("no list was found that matches id: %s", listID)
	}
	if l.ContainerID != containerID {
		return notFoundf("no list was found that matches container id: %s", containerID)
	}
	if l.Scope != model.ScopeRestricted {
		return scopeMismatch()
	}

	ref := model.ListRef{ListID: l.ID, ListName: l.Name, Scope: l.Scope, Reference: containerID}
	if _, err := s.containers.BulkUpsertRef(people, kind, ref); err != nil {
		return storeErr("bulk upsert refs", err)
	}
	if err := s.lists.AddMembers(listID, people); err != nil {
		return storeErr("add members", err)
	}
	return nil
}

// RemovePeople revokes access: the ref is pulled from each revoked user's
// container in one batched write, then the usernames leave the member set.
// The owner cannot be removed, so the member set of a RESTRICTED list is
// never empty.
func (s *Service) RemovePeople(containerID, listID string, people []string) error {
	kind, ok := model.KindOfID(containerID)
	if !ok {
		return validationf("no list kind found in container id")
	}
	l, err := s.lists.GetByID(listID)
	if err != nil {
		return storeErr("get list", err)
	}
	if l == nil {
		return notFoundf("no list was found that matches id: %s", listID)
	}
	if l.ContainerID != containerID {
		return notFoundf("no list was found that matches container id: %s", containerID)
	}
	if l.Scope != model.ScopeRestricted {
		return scopeMismatch()
	}
	container, err := s.containers.GetByID(containerID)
	if err != nil {
		return storeErr("get container", err)
	}
	if container == nil {
		return notFoundf("could not find the container with id: %s", containerID)
	}
	if slices.Contains(people, container.OwnerUsername) {
		return validationf("the list owner cannot be removed")
	}

	ref := model.ListRef{ListID: l.ID, ListName: l.Name, Scope: l.Scope, Reference: containerID}
	if _, err := s.containers.BulkRemoveRef(people, kind, ref); err != nil {
		return storeErr("bulk remove refs", err)
	}
	if err := s.lists.RemoveMembers(listID, people); err != nil {
		return storeErr("remove members", err)
	}
	return nil
}

// GetPeople returns the member set of a RESTRICTED list.
func (s *Service) GetPeople(containerID, listID string) ([]string, error) {
	l, err := s.lists.GetByID(listID)
	if err != nil {
		return nil, storeErr("get list", err)
	}
	if l == nil {
		return nil, notFoundf("no list was found that matches id: %s", listID)
	}
	if l.ContainerID != containerID {
		return nil, authf("no list was found that matches container id: %s", containerID)
	}
	if l.Scope != model.ScopeRestricted {
		return nil, scopeMismatch()
	}
	return l.Members, nil
}

// DeleteList removes a list the container owns, along with the owner's ref.
// Used for PRIVATE and PUBLIC lists, where the owning container holds the
// only ref there is.
func (s *Service) DeleteList(containerID, listID string, scope model.Scope) error {
	container, err := s.containers.GetByID(containerID)
	if err != nil {
		return storeErr("get container", err)
	}
	if container == nil {
		return notFoundf("could not find the container with id: %s", containerID)
	}
	if _, verr := s.authorizedList(containerID, listID, scope); verr != nil {
		return verr
	}

	if err := s.containers.RemoveRefByID(containerID, listID); err != nil {
		return storeErr("remove ref", err)
	}
	if err := s.lists.Delete(listID); err != nil {
		return storeErr("delete list", err)
	}
	return nil
}

// DeleteRestrictedList branches on ownership. The owner deletes the list
// outright, pulling the ref from every member's container in one batched
// write. A non-owner member only leaves: their own ref and membership go,
// the list and everyone else's access survive.
func (s *Service) DeleteRestrictedList(containerID, listID string) error {
	l, err := s.lists.GetByID(listID)
	if err != nil {
		return storeErr("get list", err)
	}
	if l == nil {
		return notFoundf("no list was found that matches id: %s", listID)
	}
	if l.Scope != model.ScopeRestricted {
		return scopeMismatch()
	}

	if l.ContainerID != containerID {
		// Member-initiated leave.
		container, err := s.containers.GetByID(containerID)
		if err != nil {
			return storeErr("get container", err)
		}
		if container == nil {
			return notFoundf("could not find the container with id: %s", containerID)
		}
		s.logger.Debug("member leaving restricted list", "list_id", listID, "username", container.OwnerUsername)
		if err := s.containers.RemoveRefByID(containerID, listID); err != nil {
			return storeErr("remove ref", err)
		}
		if err := s.lists.RemoveMembers(listID, []string{container.OwnerUsername}); err != nil {
			return storeErr("remove members", err)
		}
		return nil
	}

	s.logger.Debug("owner deleting restricted list", "list_id", listID, "members", len(l.Members))
	ref := model.ListRef{ListID: l.ID, ListName: l.Name, Scope: l.Scope, Reference: containerID}
	if _, err := s.containers.BulkRemoveRef(l.Members, l.Kind, ref); err != nil {
		return storeErr("bulk remove refs", err)
	}
	if err := s.lists.Delete(listID); err != nil {
		return storeErr("delete list", err)
	}
	return nil
}

// ReorderRefs replaces the container's ref ordering wholesale.
func (s *Service) ReorderRefs(containerID string, listIDs []string) error {
	container, err := s.containers.GetByID(containerID)
	if err != nil {
		return storeErr("get container", err)
	}
	if container == nil {
		return notFoundf("no container was found that matches id: %s", containerID)
	}
	if err := s.containers.ReorderRefs(containerID, listIDs); err != nil {
		return validationf("reorder refs: %v", err)
	}
	return nil
}
