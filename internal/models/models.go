// Package models defines the domain types for mindmaps.
package models

import "time"

// User is a registered account. Hash fields never leave the server.
type User struct {
	ID                 int64     `json:"id"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	SecurityQuestion   string    `json:"-"`
	SecurityAnswerHash string    `json:"-"`
	Hint               string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
}

// MindMap is a user-owned document. Data holds the client's JSON tree verbatim.
type MindMap struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Data      string    `json:"data"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MapSummary is a lightweight search hit.
type MapSummary struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}
