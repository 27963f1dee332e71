package core

import "time"

// Credentials are the long-lived secrets of the service account.
type Credentials struct {
	Username string
	Password string

	// TOTPSecret is the base32 encoded seed of the second factor. Empty if 2FA is disabled.
	TOTPSecret string
}

// Session is the token set of an authenticated remote session.
type Session struct {
	// AuthToken is the primary session token obtained by logging in.
	AuthToken string `json:"token"`

	// SecondFactorToken is set once the second factor challenge has been completed.
	SecondFactorToken string `json:"second_factor_token,omitempty"`

	// UserAgent is the user agent that was used to obtain the session.
	UserAgent string `json:"-"`
}

// IsZero reports whether the session holds no token at all.
func (s Session) IsZero() bool {
	return s.AuthToken == ""
}

// SessionState describes where the session manager is in the login flow.
type SessionState int

const (
	Unauthenticated SessionState = iota
	AwaitingSecondFactor
	Authenticated
	Rejected
)

func (s SessionState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AwaitingSecondFactor:
		return "awaiting_second_factor"
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Member is the membership of a user in a group.
type Member struct {
	UserID string `json:"userId"`

	// BannedAt is nil if the user is not banned.
	BannedAt *time.Time `json:"bannedAt"`
}

// Banned reports whether the member is currently banned.
func (m Member) Banned() bool {
	return m.BannedAt != nil
}

// User is a (reduced) public user profile.
type User struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	Bio          string `json:"bio,omitempty"`
	ThumbnailURL string `json:"currentAvatarThumbnailImageUrl,omitempty"`
}
