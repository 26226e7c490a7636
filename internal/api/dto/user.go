package dto

import "github.com/martijn/accountd/internal/core/domain"

// LoginRequest is the body of POST /users/:username.
type LoginRequest struct {
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /users. Field presence is validated by
// the service so the error message matches the wire contract exactly.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// LogoutRequest is the body of POST /logout.
type LogoutRequest struct {
	Username string `json:"username"`
}

// DeleteRequest is the body of DELETE /users.
type DeleteRequest struct {
	Username string `json:"username"`
}

// LoginResponse carries the fresh token and the record as read before the
// token overwrite.
type LoginResponse struct {
	Auth string       `json:"auth"`
	User *domain.User `json:"user"`
}

type LogoutResponse struct {
	Message string `json:"message"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the body of every failed JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}
