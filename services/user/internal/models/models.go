package models

import "time"

type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// Scopes lists the token scopes granted to the role.
func (r Role) Scopes() []string {
	if r == RoleAdmin {
		return []string{"user", "admin"}
	}
	return []string{"user"}
}

type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement"          json:"id"`
	Username     string     `gorm:"size:50;uniqueIndex;not null"      json:"username"`
	Email        string     `gorm:"size:255;uniqueIndex;not null"     json:"email"`
	PasswordHash string     `gorm:"column:hashed_password;not null"   json:"-"`
	FullName     *string    `gorm:"size:100"                          json:"full_name"`
	IsActive     bool       `gorm:"not null;default:true"             json:"is_active"`
	Role         Role       `gorm:"size:20;not null;default:user"     json:"role"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"                    json:"created_at"`
	LastLogin    *time.Time `                                         json:"last_login"`
	LoginCount   int        `gorm:"not null;default:0"                json:"login_count"`
}

// UserPatch carries a partial profile update. Nil fields are left alone.
type UserPatch struct {
	Email        *string
	FullName     *string
	PasswordHash *string
	Role         *Role
	IsActive     *bool
}

func (p UserPatch) Empty() bool {
	return p.Email == nil && p.FullName == nil && p.PasswordHash == nil && p.Role == nil && p.IsActive == nil
}
