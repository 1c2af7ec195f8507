package auth

import (
	"errors"
	"fmt"
	"slices"

	"github.com/listpal/listpal/internal/store"
)

var ErrForbidden = errors.New("forbidden")

// Gate holds the two authorization predicates run before every mutating
// operation. Which predicate applies is chosen by the scope the request
// declares, not the scope stored on the list; the facade rejects a mismatch
// between the two afterwards.
type Gate struct {
	containers *store.ContainerStore
	lists      *store.ListStore
}

func NewGate(containers *store.ContainerStore, lists *store.ListStore) *Gate {
	return &Gate{containers: containers, lists: lists}
}

// AuthorizePrivate succeeds iff the subject owns the container.
func (g *Gate) AuthorizePrivate(sub Subject, containerID string) error {
	container, err := g.containers.GetByID(containerID)
	if err != nil {
		return fmt.Errorf("get container: %w", err)
	}
	if container == nil || container.OwnerUsername != sub.Username {
		return ErrForbidden
	}
	return nil
}

// AuthorizeRestricted succeeds iff the subject is a member of the list.
func (g *Gate) AuthorizeRestricted(sub Subject, listID string) error {
	members, err := g.lists.GetMembers(listID)
	if err != nil {
		return fmt.Errorf("get members: %w", err)
	}
	if !slices.Contains(members, sub.Username) {
		return ErrForbidden
	}
	return nil
}
