package models

import "time"

// AttendanceRecord is one append-only ledger row. The tuple
// (student_id, class_name, year, subject, marked_on, code) is unique; that
// uniqueness is the duplicate-prevention invariant.
type AttendanceRecord struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name"`
	ClassName   string    `db:"class_name" json:"class_name"`
	Year        string    `db:"year" json:"year"`
	Subject     string    `db:"subject" json:"subject"`
	Code        string    `db:"code" json:"code"`
	MarkedAt    time.Time `db:"marked_at" json:"marked_at"`
	MarkedOn    time.Time `db:"marked_on" json:"marked_on"`
}

// AttendanceFilter scopes teacher report queries.
type AttendanceFilter struct {
	ClassName string
	Year      string
	Subject   string
	Date      *time.Time
	StudentID string
	Page      int
	PageSize  int
}

// AttendanceSummary aggregates one class session day.
type AttendanceSummary struct {
	ClassName string    `json:"class_name"`
	Year      string    `json:"year"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date"`
	Marked    int       `json:"marked"`
	Roster    int       `json:"roster"`
}

// DeviceLock is the server-side record binding a student to a cooldown
// window. Expired rows are garbage, purged lazily on the next check.
type DeviceLock struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	UnlockAt  time.Time `db:"unlock_at" json:"unlock_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
