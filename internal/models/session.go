package models

import "time"

// SessionCode is the rotating short code a teacher issues for one
// (class, year, subject, calendar day) session. At most one row exists per
// tuple; re-issuing the same day replaces the previous entry. The optional
// anchor coordinates are the teacher's reported location used for
// geofencing.
type SessionCode struct {
	ID        string    `db:"id" json:"id"`
	ClassName string    `db:"class_name" json:"class_name"`
	Year      string    `db:"year" json:"year"`
	Subject   string    `db:"subject" json:"subject"`
	Date      time.Time `db:"date" json:"date"`
	Code      string    `db:"code" json:"code"`
	AnchorLat *float64  `db:"anchor_lat" json:"anchor_lat,omitempty"`
	AnchorLng *float64  `db:"anchor_lng" json:"anchor_lng,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Anchor returns the geofence anchor when both coordinates are present.
func (c *SessionCode) Anchor() (lat, lng float64, ok bool) {
	if c.AnchorLat == nil || c.AnchorLng == nil {
		return 0, 0, false
	}
	return *c.AnchorLat, *c.AnchorLng, true
}

// SessionToken is a one-shot credential minted when a device completes the
// QR code round-trip. It is bound to a student only at consumption time.
type SessionToken struct {
	Token     string    `db:"token" json:"token"`
	ClassName string    `db:"class_name" json:"class_name"`
	Year      string    `db:"year" json:"year"`
	Subject   string    `db:"subject" json:"subject"`
	Date      time.Time `db:"date" json:"date"`
	Used      bool      `db:"used" json:"used"`
	ClaimedBy *string   `db:"claimed_by" json:"claimed_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MatchesSession reports whether the token was minted for the given session
// tuple on the given day.
func (t *SessionToken) MatchesSession(class, year, subject string, day time.Time) bool {
	return t.ClassName == class &&
		t.Year == year &&
		t.Subject == subject &&
		t.Date.Format(DateLayout) == day.Format(DateLayout)
}
