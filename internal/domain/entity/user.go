package entity

type UserStatus string

const (
	UserStatusActive              UserStatus = "ACTIVE"
	UserStatusBlocked             UserStatus = "BLOCKED"
	UserStatusPendingVerification UserStatus = "PENDING_VERIFICATION"
)

type User struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Avatar string     `json:"avatar,omitempty"`
	Status UserStatus `json:"status"`
}
