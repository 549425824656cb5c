package services

import "github.com/shashiranjanraj/panaya/app/models"

// Actor is the authenticated caller.
type Actor struct {
	ID   uint
	Role models.Role
}

func (a Actor) Admin() bool { return a.Role == models.RoleAdmin }

// Owns reports whether a may act on a row belonging to userID.
func (a Actor) Owns(userID uint) bool { return a.Admin() || a.ID == userID }

func (a Actor) authorize(userID uint) error {
	if !a.Owns(userID) {
		return ErrForbidden
	}
	return nil
}
