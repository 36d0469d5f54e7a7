package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
	maxBodyBytes     = 1 << 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, Error{Code: code, Message: message})
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, InternalError, message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// bindEventID binds the eventId path parameter the way generated server
// wrappers do.
func bindEventID(r *http.Request) (uuid.UUID, error) {
	var eventID uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "eventId", chi.URLParam(r, "eventId"), &eventID, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	return eventID, err
}

type pageParams struct {
	Limit  *int
	Cursor *string
}

func bindPageParams(r *http.Request) (pageParams, error) {
	var params pageParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		return pageParams{}, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "cursor", r.URL.Query(), &params.Cursor); err != nil {
		return pageParams{}, err
	}
	return params, nil
}

// limitFrom returns the page size and false when the caller asked for one
// outside [1, maxPageLimit].
func (p pageParams) limitFrom() (int32, bool) {
	if p.Limit == nil {
		return defaultPageLimit, true
	}
	if *p.Limit < 1 || *p.Limit > maxPageLimit {
		return 0, false
	}
	return int32(*p.Limit), true
}
