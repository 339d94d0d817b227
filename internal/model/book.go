package model

import "time"

// Book represents a catalog entry.
type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	ISBN      string    `json:"isbn"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookFields holds the user-supplied fields of a new book.
type BookFields struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn"`
	Category string `json:"category"`
}
