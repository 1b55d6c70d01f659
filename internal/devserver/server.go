// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
)

// Defaults for Config.
const (
	DefaultAPITokenTTL    = 24 * time.Hour
	DefaultStreamTokenTTL = 30 * 24 * time.Hour
	MinPasswordLength     = 8
)

// Config configures a Server.
type Config struct {
	// Secret signs tokens. Required.
	Secret []byte
	// APITokenTTL and StreamTokenTTL default to the package defaults.
	APITokenTTL    time.Duration
	StreamTokenTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// Now defaults to time.Now.
	Now func() time.Time
	Log zerolog.Logger
}

// Server is the development backend.
type Server struct {
	log    zerolog.Logger
	dir    *directory
	tokens *tokenIssuer
	hub    *Hub
	engine *gin.Engine

	upgrader websocket.Upgrader
}

// New builds a server with no hospitals or users.
func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("devserver: secret is required")
	}
	if cfg.APITokenTTL <= 0 {
		cfg.APITokenTTL = DefaultAPITokenTTL
	}
	if cfg.StreamTokenTTL <= 0 {
		cfg.StreamTokenTTL = DefaultStreamTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		log:    cfg.Log.With().Str("component", "devserver").Logger(),
		dir:    newDirectory(cfg.Now, cfg.BcryptCost),
		tokens: newTokenIssuer(cfg.Secret, cfg.APITokenTTL, cfg.StreamTokenTTL, cfg.Now),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Terminal clients send no Origin; local use only.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.hub = newHub(s.dir.user, cfg.Now, cfg.Log)
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler serving /api and /ws.
func (s *Server) Handler() http.Handler { return s.engine }

// Hub returns the chat relay.
func (s *Server) Hub() *Hub { return s.hub }

// AddHospital registers a hospital users can join with code.
func (s *Server) AddHospital(code, name string) api.Hospital {
	return s.dir.addHospital(code, name)
}

// AddUser creates an account, as register would.
func (s *Server) AddUser(name, email, password, hospitalCode string) (api.User, error) {
	u, _, err := s.dir.register(name, email, password, hospitalCode)
	return u, err
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	g := r.Group("/api")
	g.POST("/login", s.handleLogin)
	g.POST("/register", s.handleRegister)

	authed := g.Group("")
	authed.Use(s.requireAuth())
	authed.POST("/logout", s.handleLogout)
	authed.GET("/users/:id", s.handleMembers)

	r.GET("/ws", s.handleWebSocket)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := s.log.Info()
		if status >= http.StatusInternalServerError {
			ev = s.log.Error()
		} else if status >= http.StatusBadRequest {
			ev = s.log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

const (
	ctxUserID = "userID"
	ctxClaims = "claims"
)

func bearer(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
			return
		}
		claims, userID, err := s.tokens.parse(raw, kindAPI)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
			return
		}
		if _, ok := s.dir.user(userID); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
			return
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// validationFailed answers 422 with per-field messages.
func validationFailed(c *gin.Context, errs map[string][]string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"message": "The given data was invalid.",
		"errors":  errs,
	})
}

func (s *Server) signedIn(c *gin.Context, status int, message string, user api.User, hospital *api.Hospital) {
	token, err := s.tokens.issue(user.ID, kindAPI)
	if err != nil {
		s.log.Error().Err(err).Msg("issue api token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create a session."})
		return
	}
	stream, err := s.tokens.issue(user.ID, kindStream)
	if err != nil {
		s.log.Error().Err(err).Msg("issue stream token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create a session."})
		return
	}
	user.StreamToken = stream

	c.JSON(status, api.AuthResponse{
		User:        user,
		Token:       token,
		Message:     message,
		Hospital:    hospital,
		StreamToken: stream,
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req api.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	errs := map[string][]string{}
	if strings.TrimSpace(req.Email) == "" {
		errs["email"] = []string{"The email field is required."}
	}
	if req.Password == "" {
		errs["password"] = []string{"The password field is required."}
	}
	if len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	user, err := s.dir.authenticate(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	var hospital *api.Hospital
	if h, ok := s.dir.hospitalByID(user.HospitalID); ok {
		hospital = &h
	}
	s.signedIn(c, http.StatusOK, "Login successful", user, hospital)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req api.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	errs := map[string][]string{}
	if strings.TrimSpace(req.Name) == "" {
		errs["name"] = []string{"The name field is required."}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		errs["email"] = []string{"The email must be a valid email address."}
	}
	if len(req.Password) < MinPasswordLength {
		errs["password"] = []string{"The password must be at least " + strconv.Itoa(MinPasswordLength) + " characters."}
	} else if req.Password != req.PasswordConfirmation {
		errs["password"] = []string{"The password confirmation does not match."}
	}
	if strings.TrimSpace(req.HospitalCode) == "" {
		errs["hospital_code"] = []string{"The hospital code field is required."}
	}
	if len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	user, hospital, err := s.dir.register(req.Name, req.Email, req.Password, req.HospitalCode)
	switch {
	case errors.Is(err, errEmailTaken):
		validationFailed(c, map[string][]string{"email": {"The email has already been taken."}})
		return
	case errors.Is(err, errUnknownHospital):
		validationFailed(c, map[string][]string{"hospital_code": {"The selected hospital code is invalid."}})
		return
	case err != nil:
		s.log.Error().Err(err).Msg("register")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Registration failed."})
		return
	}

	s.log.Info().Int64("user_id", user.ID).Int64("hospital_id", hospital.ID).Msg("user registered")
	s.signedIn(c, http.StatusCreated, "Registration successful", user, &hospital)
}

func (s *Server) handleLogout(c *gin.Context) {
	if claims, ok := c.Get(ctxClaims); ok {
		s.tokens.revoke(claims.(*tokenClaims))
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (s *Server) handleMembers(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user id."})
		return
	}
	if id != c.GetInt64(ctxUserID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "You may only list your own hospital."})
		return
	}

	members, ok := s.dir.members(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found."})
		return
	}
	for i := range members {
		members[i].StreamToken = ""
	}
	c.JSON(http.StatusOK, api.MembersResponse{
		Success: true,
		Message: "Hospital members retrieved successfully",
		Data:    members,
	})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		raw = bearer(c)
	}
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "No token provided"})
		return
	}
	_, userID, err := s.tokens.parse(raw, kindStream)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
		return
	}
	if q := c.Query("user_id"); q != "" && q != strconv.FormatInt(userID, 10) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Token does not belong to this user"})
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.hub.serve(ws, userID)
}
