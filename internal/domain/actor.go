package domain

import "github.com/google/uuid"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// SystemActor is used for signals that arrive without a user, such as a
// payment provider webhook.
var SystemActor = Actor{Role: "system"}

func (a Actor) IsSystem() bool {
	return a.Role == "system"
}

// IDPtr returns nil for the system actor so event rows carry no actor.
func (a Actor) IDPtr() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
