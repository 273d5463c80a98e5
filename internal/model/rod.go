package model

import "time"

// RodTag is a secondary credential issued to a checked-in seat and used
// to attribute catch weights.  Replacing a tag deactivates the previous
// version; old versions are kept for audit.
//
// Fields:
//  ID            – tag identifier (uuid).
//  Credential    – QR payload of the rod tag.
//  Version       – 1 for the first tag, incremented on every replacement.
//  SeatID        – seat the tag is bound to.
//  BookingID     – booking of that seat.
//  StationID     – issuing station.
//  IssuedBy      – operator identity that issued the tag.
//  Active        – false once superseded or voided.
//  IssuedAt      – issuance time.
//  DeactivatedAt – when the tag stopped being active.
type RodTag struct {
	ID            string     `json:"id"`                       // rod_tags.id
	Credential    string     `json:"credential"`               // rod_tags.credential
	Version       int        `json:"version"`                  // rod_tags.version
	SeatID        uint64     `json:"seat_id"`                  // rod_tags.seat_id
	BookingID     string     `json:"booking_id"`               // rod_tags.booking_id
	StationID     string     `json:"station_id"`               // rod_tags.station_id
	IssuedBy      string     `json:"issued_by"`                // rod_tags.issued_by
	Active        bool       `json:"active"`                   // rod_tags.active
	IssuedAt      time.Time  `json:"issued_at"`                // rod_tags.issued_at
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"` // rod_tags.deactivated_at (nullable)
}
