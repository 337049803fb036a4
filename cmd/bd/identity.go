package main

import "github.com/google/uuid"

// newSourceID generates a fresh device identity when the user doesn't
// supply one during bootstrap.
func newSourceID() string {
	return uuid.NewString()
}
