package repository

import (
	"context"

	"petshop_service/internal/chat/domain"
	errprocess "petshop_service/pkg/err"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProfileRepository definition identity lookup (profiles table)
type ProfileRepository interface {
	// FindAdmin 回傳唯一的 admin 帳號
	FindAdmin(ctx context.Context) (*domain.Profile, error)
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Profile, error)
	SetOnline(ctx context.Context, id string, online bool) error
}

type profileRepository struct {
	db *pgxpool.Pool
}

// NewPgProfileRepository create a ProfileRepository
func NewPgProfileRepository(db *pgxpool.Pool) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindAdmin(ctx context.Context) (*domain.Profile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, full_name, avatar_url, role, is_online FROM profiles WHERE role = 'admin' LIMIT 1`,
	)
	var p domain.Profile
	if err := row.Scan(&p.ID, &p.FullName, &p.AvatarURL, &p.Role, &p.IsOnline); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errprocess.Set("no admin profile found")
		}
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, full_name, avatar_url, role, is_online FROM profiles WHERE id = $1`, id,
	)
	var p domain.Profile
	if err := row.Scan(&p.ID, &p.FullName, &p.AvatarURL, &p.Role, &p.IsOnline); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errprocess.Set("no profile found with given id")
		}
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Profile, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, full_name, avatar_url, role, is_online FROM profiles WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.AvatarURL, &p.Role, &p.IsOnline); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *profileRepository) SetOnline(ctx context.Context, id string, online bool) error {
	_, err := r.db.Exec(ctx, `UPDATE profiles SET is_online = $1 WHERE id = $2`, online, id)
	return err
}
