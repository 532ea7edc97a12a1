package store

import (
	"context"
	"log"

	"biblioteca-mistica/internal/realtime"

	"gorm.io/gorm"
)

// Repository is the table API. Every committed write is published as a
// realtime event.
type Repository struct {
	db  *gorm.DB
	pub realtime.Publisher
}

func NewRepository(db *gorm.DB, pub realtime.Publisher) *Repository {
	return &Repository{db: db, pub: pub}
}

func (r *Repository) DB() *gorm.DB {
	return r.db
}

// emit publishes a change. Failures are logged; the write already committed.
func (r *Repository) emit(ctx context.Context, table string, typ realtime.EventType, newRow, oldRow interface{}) {
	if r.pub == nil {
		return
	}
	e, err := realtime.NewEvent(table, typ, newRow, oldRow)
	if err != nil {
		log.Printf("⚠️ [STORE] Failed to build %s %s event: %v", table, typ, err)
		return
	}
	if err := r.pub.Publish(context.WithoutCancel(ctx), e); err != nil {
		log.Printf("⚠️ [STORE] Failed to publish %s %s event: %v", table, typ, err)
	}
}
