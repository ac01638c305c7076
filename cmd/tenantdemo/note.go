package main

import (
	"embed"
	"time"

	"github.com/google/uuid"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Note is the tenant-scoped entity served by the API. Every tenant has its
// own notes table with the same shape.
type Note struct {
	ID        uuid.UUID `db:"id,pk" json:"id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	Pinned    bool      `db:"pinned" json:"pinned"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (Note) TableName() string { return "notes" }

type noteInput struct {
	Title  *string `json:"title"`
	Body   *string `json:"body"`
	Pinned *bool   `json:"pinned"`
}
