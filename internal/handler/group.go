package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/pkordes/campusride/internal/domain"
)

// multipartMemory is how much of a multipart form is buffered in memory
// before file parts spill to disk.
const multipartMemory = 1 << 20

// CreateGroup handles POST /groups.
// Accepts multipart/form-data (fields plus an optional "image" file) or a
// JSON GroupRequest. The caller becomes the owner and only member.
func (s *Server) CreateGroup(w http.ResponseWriter, r *http.Request) {
	u, err := caller(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ng, cleanup, err := readNewGroup(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, err)
			return
		}
		badRequest(w, err.Error())
		return
	}
	defer cleanup()
	ng.OwnerID = u.ID

	g, err := s.groups.Create(r.Context(), ng)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupToResponse(g))
}

// readNewGroup decodes the request body into a NewGroup. cleanup releases any
// multipart temp files and must be called once the upload has been consumed.
func readNewGroup(r *http.Request) (domain.NewGroup, func(), error) {
	noop := func() {}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType != "multipart/form-data" {
		var req GroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return domain.NewGroup{}, noop, fmt.Errorf("invalid request body: %w", err)
		}
		return domain.NewGroup{
			Name: req.Name, Destination: req.Destination, Description: req.Description, Color: req.Color,
		}, noop, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return domain.NewGroup{}, noop, fmt.Errorf("invalid multipart body: %w", err)
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	ng := domain.NewGroup{
		Name:        r.FormValue("name"),
		Destination: r.FormValue("destination"),
		Description: r.FormValue("description"),
		Color:       r.FormValue("color"),
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return ng, cleanup, nil
	case err != nil:
		cleanup()
		return domain.NewGroup{}, noop, fmt.Errorf("invalid image: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	ng.Image = &domain.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}
	return ng, func() { _ = file.Close(); cleanup() }, nil
}

// ListGroups handles GET /groups.
// Returns the caller's groups, newest first, with ?limit= and ?cursor=.
func (s *Server) ListGroups(w http.ResponseWriter, r *http.Request) {
	u, err := caller(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := pageParams(r)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.fail(w, r, err)
			return
		}
		badRequest(w, err.Error())
		return
	}

	page, err := s.groups.ListForMember(r.Context(), u.ID, p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data := make([]Group, len(page.Items))
	for i, g := range page.Items {
		data[i] = groupToResponse(g)
	}
	writeJSON(w, http.StatusOK, List[Group]{Data: data, NextCursor: page.Next})
}

// GetGroup handles GET /groups/{groupID}.
// Any signed-in user may read a group so invite links can show what they join.
func (s *Server) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := groupParams(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	g, err := s.groups.Get(r.Context(), groupID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupToResponse(g))
}

// JoinGroup handles POST /groups/{groupID}/members, adding the caller.
func (s *Server) JoinGroup(w http.ResponseWriter, r *http.Request) {
	u, err := caller(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	groupID, err := groupParams(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	g, err := s.groups.AddMember(r.Context(), groupID, u.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupToResponse(g))
}

// requireMember loads the group and checks userID belongs to it.
func (s *Server) requireMember(r *http.Request, groupID, userID string) error {
	g, err := s.groups.Get(r.Context(), groupID)
	if err != nil {
		return err
	}
	if !g.HasMember(userID) {
		return fmt.Errorf("%w: not a member of this group", domain.ErrForbidden)
	}
	return nil
}
