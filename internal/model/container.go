package model

import "time"

// Container is a per-(user, kind) holder of ListRef projections. It is the
// unit a user's UI enumerates without loading full lists.
type Container struct {
	ID            string    `json:"id"`
	OwnerUsername string    `json:"owner_username"`
	Kind          Kind      `json:"kind"`
	Refs          []ListRef `json:"refs"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListRef is a denormalized projection of a list inside a container.
// Reference carries the owning container id so shared lists can be
// dereferenced by members. Refs are never edited in place; they are deleted
// and recreated so ListName and Scope stay correct.
type ListRef struct {
	ListID    string `json:"list_id"`
	ListName  string `json:"list_name"`
	Scope     Scope  `json:"scope"`
	Reference string `json:"reference"`
	Order     int    `json:"order"`
}

// RefByListID returns the ref for a list id, or nil.
func (c *Container) RefByListID(listID string) *ListRef {
	for i := range c.Refs {
		if c.Refs[i].ListID == listID {
			return &c.Refs[i]
		}
	}
	return nil
}
