package customers

import (
	"time"

	"github.com/google/uuid"
)

// Customer represents a buying party. A customer may optionally be owned by a
// user account (1:1); the lifecycle never mutates customers.
type Customer struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
