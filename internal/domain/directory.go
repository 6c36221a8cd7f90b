package domain

import "time"

// Role is the capability carried by an authenticated actor.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
	RoleWorker Role = "worker"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient || r == RoleWorker
}

// Actor is the authenticated caller of a request.
type Actor struct {
	ID   string
	Role Role
}

// Ref returns the reference stored on status events.
func (a *Actor) Ref() *ActorRef {
	return &ActorRef{ID: a.ID, Role: a.Role}
}

// Province is a destination province; its ledger is keyed by ID.
type Province struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ref returns the identity joined into reports.
func (p *Province) Ref() ProvinceRef {
	return ProvinceRef{ID: p.ID, Name: p.Name}
}

// CreateProvinceRequest is the body of POST /api/provinces.
type CreateProvinceRequest struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required,max=10"`
}

// Client is a sender registered at the counter. Managed elsewhere; read-only here.
type Client struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Address    string      `json:"address"`
	Department string      `json:"department"`
	Phone      string      `json:"phone"`
	Email      string      `json:"email"`
	Recipients []Recipient `json:"recipients"`
}

// FindRecipient returns the saved recipient with the given id.
func (c *Client) FindRecipient(id string) (*Recipient, bool) {
	for i := range c.Recipients {
		if c.Recipients[i].ID == id {
			r := c.Recipients[i]
			return &r, true
		}
	}
	return nil, false
}
