package domain

import "regexp"

// ContactKind tells how a booking contact can be reached. Only email contacts
// receive confirmation messages.
type ContactKind int

const (
	ContactKindInvalid ContactKind = iota
	ContactKindEmail
	ContactKindPhone
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

// ClassifyContact decides whether a contact string is an email address, an
// exact 10-digit phone number, or neither. The two formats are checked as an
// OR; neither alone is required.
func ClassifyContact(contact string) ContactKind {
	switch {
	case emailPattern.MatchString(contact):
		return ContactKindEmail
	case phonePattern.MatchString(contact):
		return ContactKindPhone
	default:
		return ContactKindInvalid
	}
}
