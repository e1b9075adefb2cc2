package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JumajiCa/ChatDVC/internal/models"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// Get returns pgx.ErrNoRows when the user has never saved a profile.
func (r *ProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*models.StudentProfile, error) {
	p := &models.StudentProfile{}
	query := `SELECT user_id, name, major, discipline, expected_graduation, counselor,
			portal_username, portal_password_enc, updated_at
		FROM student_profiles WHERE user_id = $1`

	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.Name, &p.Major, &p.Discipline, &p.ExpectedGraduation, &p.Counselor,
		&p.PortalUsername, &p.PortalPasswordEnc, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.HasPortalPassword = p.PortalPasswordEnc != ""
	return p, nil
}

// Upsert writes every field. An empty PortalPasswordEnc keeps the stored one.
func (r *ProfileRepo) Upsert(ctx context.Context, p *models.StudentProfile) error {
	query := `
		INSERT INTO student_profiles (user_id, name, major, discipline, expected_graduation, counselor,
			portal_username, portal_password_enc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			major = EXCLUDED.major,
			discipline = EXCLUDED.discipline,
			expected_graduation = EXCLUDED.expected_graduation,
			counselor = EXCLUDED.counselor,
			portal_username = EXCLUDED.portal_username,
			portal_password_enc = COALESCE(NULLIF(EXCLUDED.portal_password_enc, ''), student_profiles.portal_password_enc),
			updated_at = NOW()
		RETURNING portal_password_enc, updated_at`

	return r.pool.QueryRow(ctx, query,
		p.UserID, p.Name, p.Major, p.Discipline, p.ExpectedGraduation, p.Counselor,
		p.PortalUsername, p.PortalPasswordEnc,
	).Scan(&p.PortalPasswordEnc, &p.UpdatedAt)
}
