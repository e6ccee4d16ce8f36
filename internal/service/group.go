package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/repo"
)

// maxIDAttempts bounds how many fresh ids Create tries before giving up on a
// run of primary-key collisions.
const maxIDAttempts = 5

// imageExtensions lists the upload types accepted for group images.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectStore persists uploaded blobs and returns a URL they can be fetched from.
type ObjectStore interface {
	Upload(ctx context.Context, key string, u domain.Upload) (string, error)
}

// GroupService implements business logic for Group operations.
type GroupService struct {
	groups repo.GroupRepo
	store  ObjectStore
	opts   options
}

// NewGroupService constructs a GroupService backed by the provided repo and
// object store.
func NewGroupService(groups repo.GroupRepo, store ObjectStore, opts ...Option) *GroupService {
	return &GroupService{groups: groups, store: store, opts: newOptions(opts)}
}

// Create validates the request, writes the group with its owner as the only
// member, and then uploads the optional image under the group's final id.
//
// Validation runs before any I/O. A failed upload leaves the group in place
// without an image; an image whose URL could not be recorded is logged as
// orphaned.
func (s *GroupService) Create(ctx context.Context, ng domain.NewGroup) (domain.Group, error) {
	if err := validateNewGroup(ng); err != nil {
		return domain.Group{}, err
	}

	id, err := s.opts.newID()
	if err != nil {
		return domain.Group{}, fmt.Errorf("service.GroupService.Create: id: %w", err)
	}

	g := domain.Group{
		ID:          id,
		Name:        strings.TrimSpace(ng.Name),
		Destination: strings.TrimSpace(ng.Destination),
		Description: strings.TrimSpace(ng.Description),
		Color:       strings.TrimSpace(ng.Color),
		OwnerID:     ng.OwnerID,
		Members:     []string{ng.OwnerID},
	}

	created, err := s.insert(ctx, g)
	if err != nil {
		return domain.Group{}, fmt.Errorf("service.GroupService.Create: %w", err)
	}
	s.opts.log.InfoContext(ctx, "group created", "group_id", created.ID, "owner_id", created.OwnerID)

	if ng.Image == nil {
		return created, nil
	}
	url, err := s.store.Upload(ctx, s.imageKey(created.ID, ng.Image.ContentType), *ng.Image)
	if err != nil {
		s.opts.log.WarnContext(ctx, "group created without image", "group_id", created.ID, "error", err)
		return domain.Group{}, fmt.Errorf("service.GroupService.Create: upload image: %w", err)
	}
	withImage, err := s.groups.SetImageURL(ctx, created.ID, url)
	if err != nil {
		s.opts.log.WarnContext(ctx, "group image orphaned", "group_id", created.ID, "image_url", url, "error", err)
		return domain.Group{}, fmt.Errorf("service.GroupService.Create: set image: %w", err)
	}
	return withImage, nil
}

// insert writes g, drawing a fresh id whenever the current one is taken.
func (s *GroupService) insert(ctx context.Context, g domain.Group) (domain.Group, error) {
	for attempt := 1; ; attempt++ {
		created, err := s.groups.Create(ctx, g)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt == maxIDAttempts {
			return domain.Group{}, err
		}
		s.opts.log.WarnContext(ctx, "group id collision, regenerating", "group_id", g.ID)
		if g.ID, err = s.opts.newID(); err != nil {
			return domain.Group{}, fmt.Errorf("id: %w", err)
		}
	}
}

// imageKey places an image under its group id and upload time.
func (s *GroupService) imageKey(groupID, contentType string) string {
	return fmt.Sprintf("groups/%s/%d%s", groupID, s.opts.now().UnixMilli(), imageExtensions[contentType])
}

// Get returns a single group by id.
func (s *GroupService) Get(ctx context.Context, id string) (domain.Group, error) {
	g, err := s.groups.Get(ctx, id)
	if err != nil {
		return domain.Group{}, fmt.Errorf("service.GroupService.Get: %w", err)
	}
	return g, nil
}

// ListForMember returns one page of the groups userID belongs to.
func (s *GroupService) ListForMember(ctx context.Context, userID string, p domain.PageParams) (domain.Page[domain.Group], error) {
	page, err := s.groups.ListForMember(ctx, userID, p)
	if err != nil {
		return domain.Page[domain.Group]{}, fmt.Errorf("service.GroupService.ListForMember: %w", err)
	}
	if page.Items == nil {
		page.Items = []domain.Group{}
	}
	return page, nil
}

// AddMember appends userID to the group's members inside an optimistic
// transaction, so concurrent joins by different users are all kept.
// Returns domain.ErrAlreadyMember if userID is already listed and
// domain.ErrNotFound if the group does not exist.
func (s *GroupService) AddMember(ctx context.Context, groupID, userID string) (domain.Group, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Group{}, fmt.Errorf("%w: user is required", domain.ErrValidation)
	}

	g, err := casTx[domain.Group]{
		entity: "group",
		read:   func(ctx context.Context) (domain.Group, error) { return s.groups.Get(ctx, groupID) },
		mutate: func(g *domain.Group) error {
			if g.HasMember(userID) {
				return domain.ErrAlreadyMember
			}
			g.Members = append(g.Members, userID)
			return nil
		},
		write: s.groups.UpdateMembers,
	}.run(ctx, s.opts)
	if err != nil {
		return domain.Group{}, fmt.Errorf("service.GroupService.AddMember: %w", err)
	}

	s.opts.log.InfoContext(ctx, "member added", "group_id", groupID, "user_id", userID, "members", len(g.Members))
	return g, nil
}

// validateNewGroup checks required fields in display order and reports the
// first one missing.
func validateNewGroup(ng domain.NewGroup) error {
	required := []struct{ value, message string }{
		{ng.Name, "Name is required to make a group!"},
		{ng.Destination, "Destination is required to make a group!"},
		{ng.Color, "Color is required to make a group!"},
		{ng.OwnerID, "Owner is required to make a group!"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", domain.ErrValidation, f.message)
		}
	}
	if ng.Image != nil {
		if _, ok := imageExtensions[ng.Image.ContentType]; !ok {
			return fmt.Errorf("%w: Image must be a JPEG, PNG, GIF or WebP file", domain.ErrValidation)
		}
	}
	return nil
}
