package domain

import "time"

// ProductLink is the audit record of an issued public product link. The
// token itself is authoritative; the record only carries usage statistics.
type ProductLink struct {
	ID             int64
	ProductID      int64
	SignedToken    string
	AccessCount    int
	LastAccessedAt *time.Time
	CreatedAt      time.Time
	ExpiresAt      *time.Time
	IsActive       bool
}

// IsExpired reports whether the mirrored expiry has passed at now.
func (l *ProductLink) IsExpired(now time.Time) bool {
	if l.ExpiresAt == nil {
		return false
	}
	return now.After(*l.ExpiresAt)
}
