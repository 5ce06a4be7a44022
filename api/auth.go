package api

import (
	"errors"
	"net/http"

	"swaphands/auth"
)

// AuthHandler handles registration, login, and profile endpoints.
type AuthHandler struct {
	Service *auth.Service
}

type userView struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName string  `json:"full_name"`
	Role     string  `json:"role"`
	Hostel   *string `json:"hostel,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

func toUserView(u auth.User) userView {
	return userView{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     string(u.Role),
		Hostel:   u.Hostel,
		Phone:    u.Phone,
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword):
			jsonError(w, http.StatusBadRequest, "password must be at least 8 characters")
		case errors.Is(err, auth.ErrDuplicateEmail):
			jsonError(w, http.StatusConflict, "email already registered")
		default:
			jsonError(w, http.StatusBadRequest, "registration failed")
		}
		return
	}

	jsonResponse(w, http.StatusCreated, toUserView(*user))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			jsonError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		jsonError(w, http.StatusInternalServerError, "login failed")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  toUserView(result.User),
	})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident := CallerIdentity(r.Context())
	user, err := h.Service.GetUserByID(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			jsonError(w, http.StatusNotFound, "user not found")
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	jsonResponse(w, http.StatusOK, toUserView(*user))
}
