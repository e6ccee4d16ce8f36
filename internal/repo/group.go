package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/campusride/internal/domain"
)

// GroupRepo defines the persistence operations for Groups.
type GroupRepo interface {
	// Create inserts a group using the caller-supplied id.
	// Returns domain.ErrConflict if the id is already taken.
	Create(ctx context.Context, g domain.Group) (domain.Group, error)

	// Get retrieves a group by id, including its current version.
	// Returns domain.ErrNotFound if no group with that id exists.
	Get(ctx context.Context, id string) (domain.Group, error)

	// UpdateMembers writes g.Members if the stored version still equals g.Version.
	// Returns domain.ErrConflict when another write got there first and
	// domain.ErrNotFound when the group no longer exists.
	UpdateMembers(ctx context.Context, g domain.Group) (domain.Group, error)

	// SetImageURL records the group's image and bumps its version.
	// Returns domain.ErrNotFound if the group does not exist.
	SetImageURL(ctx context.Context, id, url string) (domain.Group, error)

	// ListForMember returns the groups userID belongs to, newest first.
	ListForMember(ctx context.Context, userID string, p domain.PageParams) (domain.Page[domain.Group], error)
}

// pgGroupRepo is the Postgres implementation of GroupRepo.
type pgGroupRepo struct {
	db db
}

// NewGroupRepo constructs a GroupRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewGroupRepo(db db) GroupRepo {
	return &pgGroupRepo{db: db}
}

const groupColumns = `id, name, destination, description, color, image_url, owner_id, members, version, created_at`

func (r *pgGroupRepo) Create(ctx context.Context, g domain.Group) (domain.Group, error) {
	const q = `
		INSERT INTO groups (id, name, destination, description, color, image_url, owner_id, members)
		VALUES (@id, @name, @destination, @description, @color, @image_url, @owner_id, @members)
		RETURNING ` + groupColumns

	args := pgx.NamedArgs{
		"id":          g.ID,
		"name":        g.Name,
		"destination": g.Destination,
		"description": g.Description,
		"color":       g.Color,
		"image_url":   g.ImageURL, // nil becomes NULL
		"owner_id":    g.OwnerID,
		"members":     g.Members,
	}

	result, err := scanGroup(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Group{}, fmt.Errorf("repo.GroupRepo.Create: %w", translate(err))
	}
	return result, nil
}

func (r *pgGroupRepo) Get(ctx context.Context, id string) (domain.Group, error) {
	const q = `SELECT ` + groupColumns + ` FROM groups WHERE id = @id`

	result, err := scanGroup(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Group{}, fmt.Errorf("repo.GroupRepo.Get: %w", translate(err))
	}
	return result, nil
}

func (r *pgGroupRepo) UpdateMembers(ctx context.Context, g domain.Group) (domain.Group, error) {
	const q = `
		UPDATE groups
		SET members = @members,
		    version = version + 1
		WHERE id = @id AND version = @version
		RETURNING ` + groupColumns

	args := pgx.NamedArgs{"id": g.ID, "members": g.Members, "version": g.Version}

	result, err := scanGroup(r.db.QueryRow(ctx, q, args))
	if err != nil {
		err = translate(err)
		if errors.Is(err, domain.ErrNotFound) {
			err = r.staleOrMissing(ctx, g.ID)
		}
		return domain.Group{}, fmt.Errorf("repo.GroupRepo.UpdateMembers: %w", err)
	}
	return result, nil
}

func (r *pgGroupRepo) SetImageURL(ctx context.Context, id, url string) (domain.Group, error) {
	const q = `
		UPDATE groups
		SET image_url = @image_url,
		    version = version + 1
		WHERE id = @id
		RETURNING ` + groupColumns

	result, err := scanGroup(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "image_url": url}))
	if err != nil {
		return domain.Group{}, fmt.Errorf("repo.GroupRepo.SetImageURL: %w", translate(err))
	}
	return result, nil
}

// staleOrMissing explains why a versioned update matched no rows.
func (r *pgGroupRepo) staleOrMissing(ctx context.Context, id string) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM groups WHERE id = @id)`, pgx.NamedArgs{"id": id}).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrConflict
	}
	return domain.ErrNotFound
}

func (r *pgGroupRepo) ListForMember(ctx context.Context, userID string, p domain.PageParams) (domain.Page[domain.Group], error) {
	const q = `
		SELECT ` + groupColumns + `
		FROM groups
		WHERE members @> ARRAY[@user_id]::text[]
		  AND (@after_created::timestamptz IS NULL OR (created_at, id) < (@after_created, @after_id))
		ORDER BY created_at DESC, id DESC
		LIMIT @limit`

	args := pgx.NamedArgs{
		"user_id":       userID,
		"after_created": nil,
		"after_id":      nullable(p.Cursor.ID),
		"limit":         p.Limit + 1,
	}
	if !p.Cursor.IsZero() {
		after, err := time.Parse(time.RFC3339Nano, p.Cursor.SortKey)
		if err != nil {
			return domain.Page[domain.Group]{}, fmt.Errorf("repo.GroupRepo.ListForMember: %w: malformed cursor", domain.ErrValidation)
		}
		args["after_created"] = after
	}

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return domain.Page[domain.Group]{}, fmt.Errorf("repo.GroupRepo.ListForMember: %w", err)
	}
	defer rows.Close()

	groups := []domain.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return domain.Page[domain.Group]{}, fmt.Errorf("repo.GroupRepo.ListForMember: scan: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Group]{}, fmt.Errorf("repo.GroupRepo.ListForMember: rows: %w", err)
	}

	page := domain.Page[domain.Group]{Items: groups}
	if len(groups) > p.Limit {
		page.Items = groups[:p.Limit]
		last := page.Items[p.Limit-1]
		page.Next = domain.TimeCursor(last.CreatedAt, last.ID).Encode()
	}
	return page, nil
}

// scanGroup maps a single database row into a domain.Group.
func scanGroup(s scanner) (domain.Group, error) {
	var g domain.Group
	err := s.Scan(&g.ID, &g.Name, &g.Destination, &g.Description, &g.Color,
		&g.ImageURL, &g.OwnerID, &g.Members, &g.Version, &g.CreatedAt)
	if err != nil {
		return domain.Group{}, err
	}
	return g, nil
}
