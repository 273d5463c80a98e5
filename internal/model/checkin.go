package model

import "time"

// CheckInStatus is the state of a check-in record.
type CheckInStatus string

const (
	CheckInActive     CheckInStatus = "checked-in"
	CheckInCheckedOut CheckInStatus = "checked-out"
	CheckInNoShow     CheckInStatus = "no-show"
	// CheckInVoided marks records whose booking was cancelled while the
	// seat was checked in.
	CheckInVoided CheckInStatus = "voided"
)

// CheckInRecord is the audit row written for every check-in of a seat.
// Records are never deleted; check-out and voiding update them in place.
//
// Fields:
//  ID           – record identifier (uuid).
//  BookingID    – booking the seat belongs to.
//  SeatID       – seat that was scanned.
//  SeatNumber   – seat number within the booking.
//  CheckInTime  – when the scan was accepted (or the no-show recorded).
//  CheckOutTime – when the seat was checked out.
//  Status       – checked-in, checked-out, no-show or voided.
//  ScannedBy    – operator identity that performed the check-in scan.
//  CheckedOutBy – operator identity that performed the check-out.
//  Notes        – free text entered by the operator.
type CheckInRecord struct {
	ID           string        `json:"id"`                       // check_ins.id
	BookingID    string        `json:"booking_id"`               // check_ins.booking_id
	SeatID       uint64        `json:"seat_id"`                  // check_ins.seat_id
	SeatNumber   int           `json:"seat_number"`              // check_ins.seat_number
	CheckInTime  time.Time     `json:"check_in_time"`            // check_ins.check_in_time
	CheckOutTime *time.Time    `json:"check_out_time,omitempty"` // check_ins.check_out_time (nullable)
	Status       CheckInStatus `json:"status"`                   // check_ins.status
	ScannedBy    string        `json:"scanned_by"`               // check_ins.scanned_by
	CheckedOutBy *string       `json:"checked_out_by,omitempty"` // check_ins.checked_out_by (nullable)
	Notes        *string       `json:"notes,omitempty"`          // check_ins.notes (nullable)
}
