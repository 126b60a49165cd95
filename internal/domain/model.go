package domain

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel is the common base for all domain entities: identity, audit
// timestamps and the soft-delete state. The fields are unexported so that the
// deletion timestamp only moves through SoftDelete and Restore.
//
// Lifecycle: Active -> (SoftDelete) -> Deleted -> (Restore) -> Active, any
// number of times. Permanent removal is a repository operation and never
// touches this state.
type BaseModel struct {
	id        string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewID returns a new time-ordered (UUIDv7) identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Timestamp normalizes t to UTC with microsecond precision, the finest
// resolution every supported store keeps.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func newBaseModel(id string, createdAt, updatedAt time.Time, deletedAt *time.Time) (BaseModel, error) {
	if id == "" {
		id = NewID()
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = Timestamp(createdAt)
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	updatedAt = Timestamp(updatedAt)
	if updatedAt.Before(createdAt) {
		return BaseModel{}, NewAppError(CodeValidation, "updated_at must not be before created_at", nil)
	}

	m := BaseModel{id: id, createdAt: createdAt, updatedAt: updatedAt}
	if deletedAt != nil {
		d := Timestamp(*deletedAt)
		if d.Before(createdAt) {
			return BaseModel{}, NewAppError(CodeValidation, "deleted_at must not be before created_at", nil)
		}
		m.deletedAt = &d
	}
	return m, nil
}

// ID returns the immutable identifier.
func (m *BaseModel) ID() string { return m.id }

// CreatedAt returns the creation time.
func (m *BaseModel) CreatedAt() time.Time { return m.createdAt }

// UpdatedAt returns the time of the latest mutation.
func (m *BaseModel) UpdatedAt() time.Time { return m.updatedAt }

// DeletedAt returns a copy of the soft-delete timestamp, or nil when active.
func (m *BaseModel) DeletedAt() *time.Time {
	if m.deletedAt == nil {
		return nil
	}
	d := *m.deletedAt
	return &d
}

// IsDeleted reports whether the entity is soft-deleted.
func (m *BaseModel) IsDeleted() bool {
	return m.deletedAt != nil
}

// SoftDelete marks an active entity as deleted at now.
// It is a no-op on an entity that is already deleted.
func (m *BaseModel) SoftDelete(now time.Time) {
	if m.IsDeleted() {
		return
	}
	ts := m.stamp(now)
	m.deletedAt = &ts
	m.updatedAt = ts
}

// Restore clears the deletion mark of a deleted entity.
// It is a no-op on an active entity.
func (m *BaseModel) Restore(now time.Time) {
	if !m.IsDeleted() {
		return
	}
	m.deletedAt = nil
	m.updatedAt = m.stamp(now)
}

// touch records a mutation at now.
func (m *BaseModel) touch(now time.Time) {
	m.updatedAt = m.stamp(now)
}

// stamp clamps now so that no lifecycle timestamp precedes createdAt.
func (m *BaseModel) stamp(now time.Time) time.Time {
	now = Timestamp(now)
	if now.Before(m.createdAt) {
		return m.createdAt
	}
	return now
}
