package memory

import (
	"errors"

	"github.com/avvvet/coffeebuddy/internal/models"
)

var (
	ErrSessionNotFound = errors.New("memory: session not found")
	ErrManagerClosed   = errors.New("memory: manager closed")
)

// Session is a point-in-time copy of one user's conversation state.
// Mutating it has no effect on the Manager.
type Session struct {
	UserID      string
	DisplayName string
	History     []models.Turn
	Slots       models.Slots
	Delivered   bool
}
