package model

import "time"

// Person is the data structure for a person tracked in the CRM.
// All fields with the exception of the Id field are optional.
type Person struct {
	Id       int64      `json:"id"                 db:"id"`
	Name     *string    `json:"name,omitempty"     db:"name"`
	Email    *string    `json:"email,omitempty"    db:"email"`
	Phone    *string    `json:"phone,omitempty"    db:"phone"`
	Birthday *time.Time `json:"birthday,omitempty" db:"birthday"`
	Notes    *string    `json:"notes,omitempty"    db:"notes"`
}
