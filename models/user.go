package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account that can author recipes, favorite them and follow other users.
type User struct {
	ID           uint      `json:"id" db:"id" gorm:"primaryKey"`
	Email        string    `json:"email" db:"email" gorm:"type:varchar(254);not null;uniqueIndex:idx_users_email"`
	Username     string    `json:"username" db:"username" gorm:"type:varchar(150);not null;uniqueIndex:idx_users_username"`
	FirstName    string    `json:"first_name" db:"first_name" gorm:"type:varchar(150);not null"`
	LastName     string    `json:"last_name" db:"last_name" gorm:"type:varchar(150);not null"`
	PasswordHash string    `json:"-" db:"password_hash" gorm:"type:text;not null"`
	Role         Role      `json:"role" db:"role" gorm:"type:varchar(16);not null;default:user"`
	IsActive     bool      `json:"is_active" db:"is_active" gorm:"not null;default:true"`
	DateJoined   time.Time `json:"date_joined" db:"date_joined" gorm:"type:timestamptz;not null;autoCreateTime"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Subscription records that Follower follows Leader.
type Subscription struct {
	ID         uint      `json:"id" db:"id" gorm:"primaryKey"`
	FollowerID uint      `json:"follower_id" db:"follower_id" gorm:"not null;uniqueIndex:idx_subscriptions_pair;check:chk_subscriptions_not_self,follower_id <> leader_id"`
	LeaderID   uint      `json:"leader_id" db:"leader_id" gorm:"not null;uniqueIndex:idx_subscriptions_pair;index:idx_subscriptions_leader"`
	CreatedAt  time.Time `json:"created_at" db:"created_at" gorm:"type:timestamptz;not null;autoCreateTime"`

	Follower User `json:"-" gorm:"foreignKey:FollowerID;references:ID;constraint:OnDelete:CASCADE"`
	Leader   User `json:"-" gorm:"foreignKey:LeaderID;references:ID;constraint:OnDelete:CASCADE"`
}

// RevokedToken blacklists a token id until the token would have expired anyway.
type RevokedToken struct {
	JTI       string    `json:"jti" db:"jti" gorm:"type:varchar(64);primaryKey"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at" gorm:"type:timestamptz;not null;index:idx_revoked_tokens_expires_at"`
}
