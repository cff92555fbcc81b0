package dto

import (
	"time"

	domainuser "deskrent/internal/domain/user"
)

type UserProfile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	Profession  string    `json:"profession,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	AccountType string    `json:"account_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AuthResponse struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	return UserProfile{
		ID:          string(user.ID),
		Email:       user.Email,
		FullName:    user.FullName,
		Profession:  user.Profession,
		PhoneNumber: user.PhoneNumber,
		AccountType: string(user.AccountType),
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func NewAuthResponse(user *domainuser.User, token string) AuthResponse {
	return AuthResponse{User: MapUserProfile(user), Token: token}
}
