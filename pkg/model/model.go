package model

import "time"

// Person is the wire format of a person record as served by the birthday-crm
// REST API. All fields with the exception of the Id field are optional.
type Person struct {
	Id       int64      `json:"id"`
	Name     *string    `json:"name,omitempty"`
	Email    *string    `json:"email,omitempty"`
	Phone    *string    `json:"phone,omitempty"`
	Birthday *time.Time `json:"birthday,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
}
