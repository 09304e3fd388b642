package models

// Class is a static roster entity owned by roster management.
type Class struct {
	ID      string `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Grade   int    `db:"grade" json:"grade"`
	Section int    `db:"section" json:"section"`
}
