package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scope is the visibility tier of a list.
type Scope string

const (
	ScopePrivate    Scope = "PRIVATE"
	ScopeRestricted Scope = "RESTRICTED"
	ScopePublic     Scope = "PUBLIC"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopePrivate, ScopeRestricted, ScopePublic:
		return true
	}
	return false
}

// Kind is the list type a container holds. It never changes after creation.
type Kind string

const (
	KindGrocery  Kind = "GROCERY"
	KindTodo     Kind = "TODO"
	KindWishlist Kind = "WISHLIST"
)

func (k Kind) Valid() bool {
	switch k {
	case KindGrocery, KindTodo, KindWishlist:
		return true
	}
	return false
}

// Kinds returns every container kind, one container per kind per user.
func Kinds() []Kind {
	return []Kind{KindGrocery, KindTodo, KindWishlist}
}

type List struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Name        string    `json:"name"`
	Scope       Scope     `json:"scope"`
	ContainerID string    `json:"container_id"`
	Members     []string  `json:"members"`
	Items       []Item    `json:"items"`
	CreatedAt   time.Time `json:"created_at"`
}

type Item struct {
	ID        string    `json:"id"`
	ListID    string    `json:"list_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Quantity  int       `json:"quantity"`
	Checked   bool      `json:"checked"`
	Priority  int       `json:"priority"`
	AddedBy   string    `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ContainerID derives the stable container id for a user and kind.
func ContainerID(username string, kind Kind) string {
	return username + "-" + string(kind)
}

// NewListID allocates a list id. The owning container id is embedded so the
// kind stays inferable from the id itself.
func NewListID(containerID string) string {
	return containerID + "-" + uuid.NewString()
}

// NewItemID allocates an item id. Callers may only rely on uniqueness.
func NewItemID() string {
	return uuid.NewString()
}

// KindOfID infers the kind embedded in a container or list id.
func KindOfID(id string) (Kind, bool) {
	for _, k := range Kinds() {
		if strings.Contains(id, string(k)) {
			return k, true
		}
	}
	return "", false
}
