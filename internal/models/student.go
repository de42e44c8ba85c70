package models

import "time"

// Student is a roster entry. The roster is read-only as far as the
// attendance pipeline is concerned.
type Student struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	ClassName string    `db:"class_name" json:"class_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
