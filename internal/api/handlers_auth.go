package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheodrd/httphelper/handler"

	"rescuegrid/internal/auth"
)

type registerRequest struct {
	Username        string `json:"username" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone"`
	FullName        string `json:"full_name"`
	Gender          string `json:"gender"`
	Age             *int   `json:"age"`
	FavouriteAnimal string `json:"favourite_animal"`
	Reason          string `json:"reason"`
	Avatar          string `json:"avatar"`
}

func (s *Server) register() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return writeError(w, http.StatusBadRequest, "invalid request body")
		}
		if err := s.validate.Struct(req); err != nil {
			return writeError(w, http.StatusBadRequest, "username, password and email required")
		}

		// Usernames are alphanumeric; dashes and underscores are allowed.
		stripped := strings.NewReplacer("_", "", "-", "").Replace(req.Username)
		if err := s.validate.Var(stripped, "required,alphanum"); err != nil {
			return writeError(w, http.StatusBadRequest, "username invalid (alphanumeric only)")
		}

		ctx := r.Context()
		if _, err := s.users.UserByIdentifier(ctx, req.Username); err == nil {
			return writeError(w, http.StatusBadRequest, "username_taken")
		}
		if _, err := s.users.UserByEmail(ctx, req.Email); err == nil {
			return writeError(w, http.StatusBadRequest, "email_already_registered")
		}

		hash, err := auth.HashPassword(req.Password, s.Config.BcryptCost)
		if err != nil {
			s.logger.Error("failed to hash password", "error", err)
			return writeDomainError(w, err)
		}

		user := &auth.User{
			ID:              uuid.NewString(),
			Username:        req.Username,
			Email:           req.Email,
			Phone:           req.Phone,
			FullName:        req.FullName,
			Gender:          req.Gender,
			Age:             req.Age,
			FavouriteAnimal: req.FavouriteAnimal,
			Reason:          req.Reason,
			Avatar:          req.Avatar,
			PasswordHash:    hash,
			CreatedAt:       time.Now().UTC(),
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			s.logger.Error("failed to create user", "error", err)
			return writeDomainError(w, err)
		}

		if err := s.otp.Send(ctx, user.Email); err != nil {
			s.logger.Warn("failed to send otp after register", "error", err)
		}

		token, err := s.jwt.GenerateToken(user.ID)
		if err != nil {
			s.logger.Error("failed to generate token", "error", err)
			return writeDomainError(w, err)
		}

		return writeJSON(w, http.StatusCreated, map[string]any{
			"token":              token,
			"user":               user,
			"needs_verification": true,
		})
	})
}

type loginRequest struct {
	UsernameOrEmail        string `json:"usernameOrEmail"`
	UsernameOrPhoneOrEmail string `json:"usernameOrPhoneOrEmail"`
	Password               string `json:"password"`
}

func (s *Server) login() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return writeError(w, http.StatusBadRequest, "invalid request body")
		}

		identifier := req.UsernameOrEmail
		if identifier == "" {
			identifier = req.UsernameOrPhoneOrEmail
		}
		if identifier == "" || req.Password == "" {
			return writeError(w, http.StatusBadRequest, "username/email and password required")
		}

		user, err := s.users.UserByIdentifier(r.Context(), identifier)
		if err != nil {
			return writeError(w, http.StatusBadRequest, "invalid_credentials")
		}
		if !auth.CheckPassword(user.PasswordHash, req.Password) {
			return writeError(w, http.StatusBadRequest, "invalid_credentials")
		}

		token, err := s.jwt.GenerateToken(user.ID)
		if err != nil {
			s.logger.Error("failed to generate token", "error", err)
			return writeDomainError(w, err)
		}

		return writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
	})
}

func (s *Server) requestOTP() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req struct {
			Email string `json:"email" validate:"required,email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return writeError(w, http.StatusBadRequest, "invalid request body")
		}
		if err := s.validate.Struct(req); err != nil {
			return writeError(w, http.StatusBadRequest, "valid email is required")
		}

		if err := s.otp.Send(r.Context(), req.Email); err != nil {
			s.logger.Error("failed to send otp", "error", err)
			return writeError(w, http.StatusInternalServerError, "failed to send OTP")
		}

		return writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"message": "OTP sent to your email. Please check your inbox (and spam).",
		})
	})
}

func (s *Server) verifyOTP() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req struct {
			Email string `json:"email"`
			Code  string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return writeError(w, http.StatusBadRequest, "invalid request body")
		}
		if req.Email == "" || req.Code == "" {
			return writeError(w, http.StatusBadRequest, "email and code required")
		}

		ctx := r.Context()
		if err := s.otp.Validate(ctx, req.Email, req.Code); err != nil {
			return writeDomainError(w, err)
		}

		user, err := s.users.UserByEmail(ctx, req.Email)
		if err != nil {
			return writeDomainError(w, err)
		}

		if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
			s.logger.Warn("could not update email_verified", "error", err)
		}
		user.EmailVerified = true

		token, err := s.jwt.GenerateToken(user.ID)
		if err != nil {
			s.logger.Error("failed to generate token", "error", err)
			return writeDomainError(w, err)
		}

		return writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
	})
}

func (s *Server) me() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return writeJSON(w, http.StatusOK, map[string]any{"user": userFrom(r)})
	})
}

type updateMeRequest struct {
	FullName        string `json:"full_name"`
	Gender          string `json:"gender"`
	Age             *int   `json:"age"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	FavouriteAnimal string `json:"favourite_animal"`
	Reason          string `json:"reason"`
	Avatar          string `json:"avatar"`
}

func (s *Server) updateMe() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req updateMeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return writeError(w, http.StatusBadRequest, "invalid request body")
		}

		user := userFrom(r)
		updated := *user
		updated.FullName = req.FullName
		updated.Gender = req.Gender
		updated.Age = req.Age
		updated.Phone = req.Phone
		if req.Email != "" {
			updated.Email = req.Email
		}
		updated.FavouriteAnimal = req.FavouriteAnimal
		updated.Reason = req.Reason
		updated.Avatar = req.Avatar

		if err := s.users.UpdateUserProfile(r.Context(), &updated); err != nil {
			s.logger.Error("failed to update profile", "error", err)
			return writeError(w, http.StatusInternalServerError, "update failed")
		}

		return writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
}
