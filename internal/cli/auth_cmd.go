// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - login, register, logout and whoami.

package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/auth"
)

// HandleLogin signs in with the email from args or a prompt and a prompted
// password. The session is saved for the TUI.
func HandleLogin(ctx context.Context, env *Env, args Args) error {
	p, err := env.prompter("sign in")
	if err != nil {
		return err
	}

	email := args.Email
	if email == "" {
		if email, err = p.Line("Email", ""); err != nil {
			return err
		}
	}
	password, err := p.Password("Password")
	if err != nil {
		return err
	}

	if err := auth.ValidateLogin(api.LoginRequest{Email: email, Password: password}); err != nil {
		return err
	}
	if err := env.Auth.Login(ctx, email, password); err != nil {
		return err
	}
	return printSignedIn(env, args, "login")
}

// HandleRegister creates an account from flags and prompts, then signs in.
func HandleRegister(ctx context.Context, env *Env, args Args) error {
	p, err := env.prompter("register")
	if err != nil {
		return err
	}

	req := api.RegisterRequest{
		Name:         args.FullName,
		Email:        args.Email,
		HospitalCode: args.Hospital,
	}
	for _, f := range []struct {
		label string
		dst   *string
	}{
		{"Full name", &req.Name},
		{"Email", &req.Email},
		{"Hospital code", &req.HospitalCode},
	} {
		if *f.dst != "" {
			continue
		}
		if *f.dst, err = p.Line(f.label, ""); err != nil {
			return err
		}
	}
	if req.Password, err = p.Password("Password"); err != nil {
		return err
	}
	if req.PasswordConfirmation, err = p.Password("Confirm password"); err != nil {
		return err
	}

	if err := auth.ValidateRegister(req); err != nil {
		return err
	}
	if err := env.Auth.Register(ctx, req); err != nil {
		return err
	}
	return printSignedIn(env, args, "register")
}

// HandleLogout ends the saved session. Being signed out already is not an
// error.
func HandleLogout(ctx context.Context, env *Env, args Args) error {
	st := env.Auth.State()
	if !st.IsAuthenticated {
		env.say(args, "%s", DimStyle.Render("Not signed in."))
		return jsonOK(env, args, "logout", map[string]bool{"signed_in": false})
	}

	env.Auth.Logout(ctx)
	env.say(args, "%s Signed out of %s", SuccessStyle.Render("✓"), st.User.Email)
	return jsonOK(env, args, "logout", map[string]bool{"signed_in": false})
}

// HandleWhoami prints the saved user.
func HandleWhoami(env *Env, args Args) error {
	st := env.Auth.State()
	if !st.IsAuthenticated || st.User == nil {
		return ErrNotSignedIn
	}
	if args.JSON {
		return NewJSONResponse("whoami", userData(st.User)).Print(env.Out)
	}
	printUser(env, args, st.User)
	return nil
}

func printSignedIn(env *Env, args Args, command string) error {
	st := env.Auth.State()
	if st.User == nil {
		return fmt.Errorf("%s succeeded without a user", command)
	}
	if args.JSON {
		return NewJSONResponse(command, userData(st.User)).Print(env.Out)
	}
	env.say(args, "%s Signed in as %s", SuccessStyle.Render("✓"), st.User.Name)
	return nil
}

func printUser(env *Env, args Args, u *api.User) {
	env.say(args, "%s", TitleStyle.Render(u.Name))
	env.say(args, "%s%s", RenderLabel("Email"), ValueStyle.Render(u.Email))
	env.say(args, "%s%s", RenderLabel("User ID"), ValueStyle.Render(strconv.FormatInt(u.ID, 10)))
	if u.HospitalID != 0 {
		env.say(args, "%s%s", RenderLabel("Hospital"), ValueStyle.Render(strconv.FormatInt(u.HospitalID, 10)))
	}
}

func userData(u *api.User) UserData {
	return UserData{ID: u.ID, Name: u.Name, Email: u.Email, HospitalID: u.HospitalID}
}

func jsonOK(env *Env, args Args, command string, data interface{}) error {
	if !args.JSON {
		return nil
	}
	return NewJSONResponse(command, data).Print(env.Out)
}
