package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/rusa-rba/route-assign/internal/models"
)

// DirectoryRepository resolves clubs and officials from the member directory.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetClubName returns the name of the club with the given ACP code.
// sql.ErrNoRows is returned unwrapped.
func (r *DirectoryRepository) GetClubName(ctx context.Context, acpCode string) (string, error) {
	const query = `SELECT acp_code, name FROM clubs WHERE acp_code = $1`
	var club models.Club
	if err := r.db.GetContext(ctx, &club, query, acpCode); err != nil {
		return "", err
	}
	return club.Name, nil
}

// GetOfficial returns a member's name and contact address.
// sql.ErrNoRows is returned unwrapped.
func (r *DirectoryRepository) GetOfficial(ctx context.Context, memberID int) (*models.Official, error) {
	const query = `SELECT member_id, first_name, last_name, email FROM officials WHERE member_id = $1`
	var official models.Official
	if err := r.db.GetContext(ctx, &official, query, memberID); err != nil {
		return nil, err
	}
	return &official, nil
}
