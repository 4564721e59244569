package models

// User is the authenticated driver as returned by /auth/me
type User struct {
	ID     string `json:"id"`
	Mobile string `json:"mobile"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status,omitempty"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Mobile   string `json:"mobile" validate:"required" msg:"Please enter both mobile number and password."`
	Password string `json:"password" validate:"required" msg:"Please enter both mobile number and password."`
}

// LoginResponse is returned by POST /auth/login
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Name     string `json:"name" validate:"required" msg:"Please enter your name."`
	Mobile   string `json:"mobile" validate:"required,mobile" msg:"Please enter a valid mobile number."`
	Password string `json:"password" validate:"required,min=6" msg:"Password must be at least 6 characters."`
}
