package upsert

import (
	"strings"

	"github.com/roach88/lexstore/internal/record"
)

// submissionUserPrefix marks users created from a form submission.
const submissionUserPrefix = "form_sub_"

// SubmissionUserID is the user id (and natural key) for the lead created from
// one submission. Keying on the submission rather than the email means the
// same person submitting twice becomes two users.
func SubmissionUserID(submissionID string) string {
	if submissionID == "" {
		return ""
	}
	return submissionUserPrefix + submissionID
}

// SubmissionUserKey is the natural key of submission-derived users.
func SubmissionUserKey(u record.User) string {
	if !strings.HasPrefix(u.ID, submissionUserPrefix) || len(u.ID) == len(submissionUserPrefix) {
		return ""
	}
	return u.ID
}

// RegistrationKey is the natural key of directly registered users: their
// normalized email, among Registro users only. Users from other sources and
// users without an email have no key.
func RegistrationKey(u record.User) string {
	if u.Source != record.SourceRegistration {
		return ""
	}
	email := NormalizeEmail(u.Email)
	if email == "" {
		return ""
	}
	return "registro:" + email
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
