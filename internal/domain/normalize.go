package domain

import "strings"

// NormalizeHumanName trims the ends and collapses internal whitespace runs.
// Usernames and club names are stored in this form.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// foldName is the comparison key for names matched without regard to case.
func foldName(s string) string {
	return strings.ToLower(NormalizeHumanName(s))
}
