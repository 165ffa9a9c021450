package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds the professional details kept beside the auth account. Its
// id is the account id.
type Profile struct {
	ID                   uuid.UUID `json:"id"`
	Specialty            string    `json:"specialty"`
	ProfessionalRegistry string    `json:"professional_registry"`
	Phone                string    `json:"phone"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Account is the identity taken from the auth session.
type Account struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
}

// View is what GET /profile returns. Profile is nil until the professional
// saved one.
type View struct {
	Account Account  `json:"account"`
	Profile *Profile `json:"profile"`
}
