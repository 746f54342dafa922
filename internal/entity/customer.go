package entity

import "time"

// CustomerType selects the tax rate applied to a customer's orders.
type CustomerType string

const (
	CustomerIndividual CustomerType = "individual"
	CustomerBusiness   CustomerType = "business"
)

// Customer is the read-only view of a customer that the order workflow needs.
type Customer struct {
	ID        int64        `json:"id"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Email     string       `json:"email"`
	Type      CustomerType `json:"type"`
	IsActive  bool         `json:"is_active"`
	IsBlocked bool         `json:"is_blocked"`
	CreatedAt time.Time    `json:"created_at"`
}

func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// CanPlaceOrders reports whether the customer may check out.
func (c *Customer) CanPlaceOrders() bool {
	return c.IsActive && !c.IsBlocked
}
