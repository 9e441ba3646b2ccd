package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/josh-kwaku/capital-pool/internal/auth"
)

// authorize lets the caller through when they own the resource or hold the
// admin role. A member probing someone else's resource sees 404, not 403.
func authorize(r *http.Request, ownerID uuid.UUID) *AppError {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return ErrMissingToken
	}
	if claims.Role == auth.RoleAdmin || claims.UserID == ownerID {
		return nil
	}
	return ErrResourceNotFound
}

func caller(r *http.Request) (*auth.Claims, *AppError) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return nil, ErrMissingToken
	}
	return claims, nil
}

func pathID(r *http.Request) (uuid.UUID, *AppError) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, ErrResourceNotFound
	}
	return id, nil
}

// ownerScope resolves which owner a list request may see. Members always see
// their own; admins see everyone unless they pass owner_id.
func ownerScope(r *http.Request) (*uuid.UUID, []FieldError, *AppError) {
	claims, appErr := caller(r)
	if appErr != nil {
		return nil, nil, appErr
	}
	raw := r.URL.Query().Get("owner_id")
	if claims.Role != auth.RoleAdmin {
		return &claims.UserID, nil, nil
	}
	if raw == "" {
		return nil, nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, []FieldError{{Field: "owner_id", Message: "must be a uuid"}}, nil
	}
	return &id, nil, nil
}

func queryInt(r *http.Request, name string, def int) (int, *FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &FieldError{Field: name, Message: "must be a non-negative integer"}
	}
	return n, nil
}
