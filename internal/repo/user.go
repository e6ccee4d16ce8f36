package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/campusride/internal/domain"
)

// UserRepo defines the persistence operations for cached user profiles.
type UserRepo interface {
	// Upsert inserts the profile or refreshes an existing one.
	Upsert(ctx context.Context, u domain.User) (domain.User, error)

	// GetByID retrieves a profile. Returns domain.ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (domain.User, error)
}

// pgUserRepo is the Postgres implementation of UserRepo.
type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

// Upsert uses ON CONFLICT DO UPDATE so RETURNING fires on both paths.
func (r *pgUserRepo) Upsert(ctx context.Context, u domain.User) (domain.User, error) {
	const q = `
		INSERT INTO users (id, name, email, profile_pic_url)
		VALUES (@id, @name, @email, @profile_pic_url)
		ON CONFLICT (id) DO UPDATE
		SET name            = EXCLUDED.name,
		    email           = EXCLUDED.email,
		    profile_pic_url = EXCLUDED.profile_pic_url,
		    updated_at      = now()
		RETURNING id, name, email, profile_pic_url, updated_at`

	args := pgx.NamedArgs{
		"id":              u.ID,
		"name":            u.Name,
		"email":           u.Email,
		"profile_pic_url": u.ProfilePicURL,
	}

	result, err := scanUser(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.Upsert: %w", translate(err))
	}
	return result, nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	const q = `SELECT id, name, email, profile_pic_url, updated_at FROM users WHERE id = @id`

	result, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByID: %w", translate(err))
	}
	return result, nil
}

func scanUser(s scanner) (domain.User, error) {
	var u domain.User
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.ProfilePicURL, &u.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
