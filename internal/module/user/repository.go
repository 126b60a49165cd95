package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/simp-lee/userdir/internal/domain"
	"github.com/simp-lee/userdir/internal/pkg"
)

var errEmailTaken = domain.NewAppError(domain.CodeConflict, "email address already used", nil)

// userRepository implements domain.UserRepository using GORM.
type userRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserRepository creates a new UserRepository backed by the given GORM database.
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &userRepository{db: db, now: time.Now}
}

// AutoMigrate creates or updates the users table and its indexes.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&userRecord{})
}

// Insert stores a new user. It fails with a conflict when the id is already
// stored or an active user owns the email. Each row gets the next insertion
// sequence number, which orders FindAll and breaks ties in Search.
func (r *userRepository) Insert(ctx context.Context, user *domain.User) error {
	rec := toRecord(user)
	return mapError(pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			// Serializes writers so sequence numbers and the email check do not race.
			if err := tx.Exec("LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
				return mapError(err)
			}
		}
		var n int64
		if err := tx.Model(&userRecord{}).Where("id = ?", rec.ID).Count(&n).Error; err != nil {
			return mapError(err)
		}
		if n > 0 {
			return domain.NewAppError(domain.CodeConflict, "user already exists using id "+rec.ID, nil)
		}
		if err := emailTaken(tx, rec.Email, ""); err != nil {
			return err
		}
		var last int64
		if err := tx.Model(&userRecord{}).Select("COALESCE(MAX(" + seqColumn + "), 0)").Scan(&last).Error; err != nil {
			return mapError(err)
		}
		rec.Seq = last + 1
		return mapError(tx.Create(rec).Error)
	}))
}

// FindByID returns the active user with id.
func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	rec, err := r.get(r.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	return rec.toEntity()
}

// FindByIDIncludingDeleted returns the user with id whether or not it is
// soft-deleted.
func (r *userRepository) FindByIDIncludingDeleted(ctx context.Context, id string) (*domain.User, error) {
	rec, err := r.get(r.db.WithContext(ctx), id, true)
	if err != nil {
		return nil, err
	}
	return rec.toEntity()
}

// FindByEmail returns the active user owning email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).
		Where("email = ? AND deleted_at IS NULL", email).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundf("user", "email", email)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return rec.toEntity()
}

// EmailExists fails with a conflict when an active user owns email.
func (r *userRepository) EmailExists(ctx context.Context, email string) error {
	return emailTaken(r.db.WithContext(ctx), email, "")
}

// FindAll returns every active user in insertion order.
func (r *userRepository) FindAll(ctx context.Context) ([]*domain.User, error) {
	var recs []userRecord
	if err := r.db.WithContext(ctx).Where("deleted_at IS NULL").Order(seqColumn + " asc").Find(&recs).Error; err != nil {
		return nil, mapError(err)
	}
	return toEntities(recs)
}

// FindAllIncludingDeleted returns every stored user in insertion order.
func (r *userRepository) FindAllIncludingDeleted(ctx context.Context) ([]*domain.User, error) {
	var recs []userRecord
	if err := r.db.WithContext(ctx).Order(seqColumn + " asc").Find(&recs).Error; err != nil {
		return nil, mapError(err)
	}
	return toEntities(recs)
}

// Update saves changes to an existing active user.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	rec := toRecord(user)
	return mapError(pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		if _, err := r.get(tx, rec.ID, false); err != nil {
			return err
		}
		if err := emailTaken(tx, rec.Email, rec.ID); err != nil {
			return err
		}
		return save(tx, rec)
	}))
}

// Delete removes a user permanently, whether or not it is soft-deleted.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&userRecord{})
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundf("user", "id", id)
	}
	return nil
}

// SoftDelete marks the active user with id as deleted.
func (r *userRepository) SoftDelete(ctx context.Context, id string) error {
	return mapError(pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		rec, err := r.get(tx, id, false)
		if err != nil {
			return err
		}
		u, err := rec.toEntity()
		if err != nil {
			return err
		}
		u.SoftDelete(r.now())
		return save(tx, toRecord(u))
	}))
}

// Restore clears the deletion mark of the user with id. Restoring an active
// user does nothing. It fails with a conflict when another active user has
// taken the email in the meantime.
func (r *userRepository) Restore(ctx context.Context, id string) error {
	return mapError(pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		rec, err := r.get(tx, id, true)
		if err != nil {
			return err
		}
		if rec.DeletedAt == nil {
			return nil
		}
		if err := emailTaken(tx, rec.Email, rec.ID); err != nil {
			return err
		}
		u, err := rec.toEntity()
		if err != nil {
			return err
		}
		u.Restore(r.now())
		return save(tx, toRecord(u))
	}))
}

// Search returns one page of active users. Filtering, ordering and
// pagination run in SQL and agree with the in-memory backend: the filter
// matches the normalized name column, and rows with equal sort keys are
// ordered by insertion sequence. A page past the end skips the row query.
func (r *userRepository) Search(ctx context.Context, params domain.SearchParams) (*domain.SearchResult[*domain.User], error) {
	params = params.Normalize()
	field, dir := userSearch.ResolveSort(params)
	sf := userSearch.Fields[field]

	order := pkg.SortSpec{Column: sf.Column, Dir: dir, TieBreak: seqColumn}
	if r.db.Dialector.Name() == "postgres" {
		order.Collation = sf.Collation
	}

	base := r.db.WithContext(ctx).
		Model(&userRecord{}).
		Where("deleted_at IS NULL").
		Scopes(pkg.ContainsNormalized(nameSearchColumn, params.Filter)).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, mapError(err)
	}

	var recs []userRecord
	if int64(params.Skip()) < total {
		if err := base.Scopes(pkg.Sort(order), pkg.Paginate(params)).Find(&recs).Error; err != nil {
			return nil, mapError(err)
		}
	}

	users, err := toEntities(recs)
	if err != nil {
		return nil, err
	}
	return domain.NewSearchResult(users, total, params, field, dir), nil
}

// get loads the row with id. Soft-deleted rows are only returned when
// includeDeleted is set.
func (r *userRepository) get(db *gorm.DB, id string, includeDeleted bool) (*userRecord, error) {
	q := db.Where("id = ?", id)
	if !includeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	var rec userRecord
	err := q.Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundf("user", "id", id)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &rec, nil
}

func save(tx *gorm.DB, rec *userRecord) error {
	err := tx.Model(&userRecord{}).Where("id = ?", rec.ID).Updates(rec.mutableColumns()).Error
	return mapError(err)
}

// emailTaken fails with a conflict when an active user other than exceptID
// owns email.
func emailTaken(db *gorm.DB, email, exceptID string) error {
	q := db.Model(&userRecord{}).Where("email = ? AND deleted_at IS NULL", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return mapError(err)
	}
	if n > 0 {
		return errEmailTaken
	}
	return nil
}

// mapError converts GORM errors to domain errors. Domain errors pass through.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeConflict, errEmailTaken.Message, err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}

// isDuplicateKeyError detects unique constraint violations by examining the
// error message. This is needed because not all GORM dialectors translate
// driver-level errors to gorm.ErrDuplicatedKey (e.g. the pure-Go SQLite driver).
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
