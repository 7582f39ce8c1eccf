package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/medirank/medirank-api/internal/middleware"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

// register handles user registration
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	var regReq RegisterRequest
	if err := json.NewDecoder(req.Body).Decode(&regReq); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	user, err := r.auth.Register(req.Context(), regReq.Email, regReq.Password, regReq.Name)
	if err != nil {
		r.respondServiceError(w, req, "register", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// login handles user login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := json.NewDecoder(req.Body).Decode(&loginReq); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	res, err := r.auth.Login(req.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		r.respondServiceError(w, req, "login", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// me returns the identity carried by the bearer token
func (r *Router) me(w http.ResponseWriter, req *http.Request) {
	claims, ok := middleware.ClaimsFromContext(req.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]string{"id": claims.ID, "email": claims.Email},
	})
}
