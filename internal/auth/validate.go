// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// FormErrors maps a form field to the message shown beside it.
type FormErrors map[string]string

func (e FormErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, e[f])
	}
	return strings.Join(msgs, "; ")
}

func (e FormErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ValidateLogin checks the login form. It returns FormErrors or nil.
func ValidateLogin(req api.LoginRequest) error {
	errs := FormErrors{}
	validateEmail(errs, req.Email)

	switch {
	case strings.TrimSpace(req.Password) == "":
		errs["password"] = "Password is required"
	case len(req.Password) < 6:
		errs["password"] = "Password must be at least 6 characters"
	}
	return errs.orNil()
}

// ValidateRegister checks the registration form. It returns FormErrors or nil.
func ValidateRegister(req api.RegisterRequest) error {
	errs := FormErrors{}

	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		errs["name"] = "Full name is required"
	case len([]rune(name)) < 2:
		errs["name"] = "Name must be at least 2 characters"
	}

	validateEmail(errs, req.Email)

	switch {
	case strings.TrimSpace(req.Password) == "":
		errs["password"] = "Password is required"
	case len(req.Password) < 8:
		errs["password"] = "Password must be at least 8 characters"
	case !mixedPassword(req.Password):
		errs["password"] = "Password must contain uppercase, lowercase, and number"
	}

	switch {
	case strings.TrimSpace(req.PasswordConfirmation) == "":
		errs["password_confirmation"] = "Please confirm your password"
	case req.Password != req.PasswordConfirmation:
		errs["password_confirmation"] = "Passwords do not match"
	}

	code := strings.TrimSpace(req.HospitalCode)
	switch {
	case code == "":
		errs["hospital_code"] = "Hospital code is required"
	case len(code) < 3:
		errs["hospital_code"] = "Hospital code must be at least 3 characters"
	}

	return errs.orNil()
}

func validateEmail(errs FormErrors, email string) {
	switch {
	case strings.TrimSpace(email) == "":
		errs["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		errs["email"] = "Please enter a valid email address"
	}
}

func mixedPassword(p string) bool {
	var lower, upper, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}
