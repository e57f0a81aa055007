package transport

import (
	"time"

	"github.com/Skotchmaster/user_service/services/user/internal/models"
)

// TokenRequest accepts both form-encoded and JSON credentials.
type TokenRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type RegisterRequest struct {
	Username string  `json:"username" form:"username"`
	Email    string  `json:"email" form:"email"`
	Password string  `json:"password" form:"password"`
	FullName *string `json:"full_name" form:"full_name"`
}

type UpdateRequest struct {
	Email    *string      `json:"email"`
	FullName *string      `json:"full_name"`
	Password *string      `json:"password"`
	Role     *models.Role `json:"role"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type ListQuery struct {
	Offset int `query:"skip"`
	Limit  int `query:"limit"`
}

type UserResponse struct {
	ID         uint        `json:"id"`
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	FullName   *string     `json:"full_name"`
	IsActive   bool        `json:"is_active"`
	Role       models.Role `json:"role"`
	CreatedAt  time.Time   `json:"created_at"`
	LastLogin  *time.Time  `json:"last_login"`
	LoginCount int         `json:"login_count"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		IsActive:   u.IsActive,
		Role:       u.Role,
		CreatedAt:  u.CreatedAt,
		LastLogin:  u.LastLogin,
		LoginCount: u.LoginCount,
	}
}

type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Total int64          `json:"total"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}
