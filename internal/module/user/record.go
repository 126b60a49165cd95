package user

import (
	"time"

	"github.com/simp-lee/userdir/internal/domain"
	"github.com/simp-lee/userdir/internal/pkg"
)

// userRecord is the persisted form of domain.User.
//
// NameSearch holds pkg.NormalizeText(Name) so accent-insensitive filtering can
// run in SQL. Seq is assigned on insert and never changes; it gives rows the
// insertion order the in-memory backend keeps, whatever their ids look like.
// Email is unique among active rows only; a soft-deleted user does not block
// its address.
type userRecord struct {
	ID           string     `gorm:"primaryKey;size:36"`
	Seq          int64      `gorm:"not null;uniqueIndex:idx_users_seq"`
	Name         string     `gorm:"not null"`
	NameSearch   string     `gorm:"not null;index"`
	Email        string     `gorm:"size:255;not null;uniqueIndex:idx_users_email_active,where:deleted_at IS NULL"`
	PasswordHash string     `gorm:"size:255;not null;default:''"`
	CreatedAt    time.Time  `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt    time.Time  `gorm:"not null;autoUpdateTime:false"`
	DeletedAt    *time.Time `gorm:"index"`
}

// TableName overrides the default table name.
func (userRecord) TableName() string { return "users" }

func toRecord(u *domain.User) *userRecord {
	p := u.Props()
	return &userRecord{
		ID:           p.ID,
		Name:         p.Name,
		NameSearch:   pkg.NormalizeText(p.Name),
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		DeletedAt:    p.DeletedAt,
	}
}

// mutableColumns lists the columns an update may change.
func (r *userRecord) mutableColumns() map[string]any {
	return map[string]any{
		"name":          r.Name,
		"name_search":   r.NameSearch,
		"email":         r.Email,
		"password_hash": r.PasswordHash,
		"updated_at":    r.UpdatedAt,
		"deleted_at":    r.DeletedAt,
	}
}

func (r *userRecord) toEntity() (*domain.User, error) {
	u, err := domain.NewUser(domain.UserProps{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		DeletedAt:    r.DeletedAt,
	})
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "corrupt user row "+r.ID, err)
	}
	return u, nil
}

func toEntities(recs []userRecord) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(recs))
	for i := range recs {
		u, err := recs[i].toEntity()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}
