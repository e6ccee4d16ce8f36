package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/middleware"
)

// pathParam binds the named chi URL parameter into dest using the OpenAPI
// "simple" style, the way generated servers do.
func pathParam(r *http.Request, name string, dest any) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	return nil
}

// groupParams reads {groupID}.
func groupParams(r *http.Request) (string, error) {
	var groupID string
	if err := pathParam(r, "groupID", &groupID); err != nil {
		return "", err
	}
	return groupID, nil
}

// rideParams reads {groupID} and {rideID}.
func rideParams(r *http.Request) (string, openapi_types.UUID, error) {
	groupID, err := groupParams(r)
	if err != nil {
		return "", openapi_types.UUID{}, err
	}
	var rideID openapi_types.UUID
	if err := pathParam(r, "rideID", &rideID); err != nil {
		return "", openapi_types.UUID{}, err
	}
	return groupID, rideID, nil
}

// pageParams binds the optional limit and cursor query parameters.
func pageParams(r *http.Request) (domain.PageParams, error) {
	var (
		limit  *int
		cursor *string
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		return domain.PageParams{}, fmt.Errorf("invalid limit: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "cursor", q, &cursor); err != nil {
		return domain.PageParams{}, fmt.Errorf("invalid cursor: %w", err)
	}
	token := ""
	if cursor != nil {
		token = *cursor
	}
	return domain.NewPageParams(limit, token)
}

// caller returns the authenticated user. Routes behind RequireAuth always
// have one; its absence means the router was wired without auth.
func caller(r *http.Request) (domain.User, error) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok || u.ID == "" {
		return domain.User{}, domain.ErrUnauthorized
	}
	return u, nil
}
