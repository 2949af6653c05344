package domain

import "time"

// SubjectType identifies who a bearer token was issued to.
type SubjectType string

const SubjectTypeStaff SubjectType = "STAFF"

// AccessToken describes an issued staff bearer token.
type AccessToken struct {
	Token     string
	SubjectID string
	Subject   SubjectType
	Role      StaffRole
	IssuedAt  time.Time
	ExpiresAt time.Time
}
