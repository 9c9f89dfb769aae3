package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/labeldesk/backend/internal/handlers/respond"
)

// pagination reads limit and offset query parameters. Invalid values fall
// back to zero and the services apply their own defaults.
func pagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	return limit, offset
}

// ownedID reads a UUID path parameter naming one of the caller's resources.
// A malformed id cannot match a row and is answered like a missing one.
func ownedID(w http.ResponseWriter, r *http.Request, name, notFound string) (string, bool) {
	id := chi.URLParam(r, name)
	if _, err := uuid.Parse(id); err != nil {
		respond.Error(w, notFound, http.StatusNotFound, nil)
		return "", false
	}
	return id, true
}

func accountParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "accountId")
	if _, err := uuid.Parse(id); err != nil {
		respond.Error(w, "Invalid account id", http.StatusBadRequest, nil)
		return "", false
	}
	return id, true
}
