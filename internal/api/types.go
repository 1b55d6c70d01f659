// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

// User is an account as returned by the auth endpoints.
type User struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	HospitalID  int64  `json:"hospital_id"`
	StreamToken string `json:"stream_token"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Member is one entry of a hospital roster. It has the same shape as User.
type Member = User

// Hospital is the organization a user registered into.
type Hospital struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	HospitalCode         string `json:"hospital_code"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User        User      `json:"user"`
	Token       string    `json:"token"`
	Message     string    `json:"message,omitempty"`
	Hospital    *Hospital `json:"hospital,omitempty"`
	StreamToken string    `json:"stream_token,omitempty"`
}

// MembersResponse is the envelope of GET /users/{id}.
type MembersResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    []Member            `json:"data"`
	Errors  map[string][]string `json:"errors,omitempty"`
}
