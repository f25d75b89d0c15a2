package models

// User is a rider record owned by the remote ledger. The kiosk only reads it.
type User struct {
	UserId string  `json:"user_id"`
	Name   string  `json:"name"`
	UID    CardUID `json:"uid"`
}
