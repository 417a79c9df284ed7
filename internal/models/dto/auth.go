package dto

import (
	"strings"

	"github.com/hongminglow/cabinet-be/internal/auth"
	"github.com/hongminglow/cabinet-be/internal/models"
)

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,password"`
	FirstName   string `json:"firstName" validate:"max=100"`
	LastName    string `json:"lastName" validate:"max=100"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,phone"`
}

// Input converts the request into the service input for kind.
func (r RegisterRequest) Input(kind models.Kind) auth.RegisterInput {
	return auth.RegisterInput{
		Kind:        kind,
		Email:       strings.TrimSpace(r.Email),
		Password:    r.Password,
		FirstName:   strings.TrimSpace(r.FirstName),
		LastName:    strings.TrimSpace(r.LastName),
		PhoneNumber: strings.TrimSpace(r.PhoneNumber),
	}
}

type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

func (r LoginRequest) Input() auth.LoginInput {
	return auth.LoginInput{Email: strings.TrimSpace(r.Email), Password: r.Password, RememberMe: r.RememberMe}
}

type LoginResponse struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}
