package model

import "time"

// Member represents a registered reader.
type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	JoinedAt time.Time `json:"joinedAt"`
}

// MemberFields holds the user-supplied fields of a new member.
type MemberFields struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
