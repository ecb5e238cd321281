package dto

import "strings"

// -------- Core auth --------

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

func (r *RegisterRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r)
}

// -------- Email verification / password reset --------

// EmailRequest is the body of the resend and forgot-password endpoints.
type EmailRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

func (r *EmailRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r)
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required,max=512"`
	NewPassword string `json:"new_password" validate:"required,max=1024"`
}

func (r *PasswordResetConfirmRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	return validateStruct(r)
}
