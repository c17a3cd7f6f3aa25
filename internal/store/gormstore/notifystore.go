package gormstore

import (
	"context"
	"time"

	"github.com/altlive/platform/internal/notify"
	"gorm.io/gorm"
)

// NotifyStore implements notify.Store using GORM.
type NotifyStore struct {
	db *gorm.DB
}

// NewNotifyStore returns a NotifyStore backed by gorm.DB.
func NewNotifyStore(db *gorm.DB) *NotifyStore {
	return &NotifyStore{db: db}
}

func (store *NotifyStore) InsertNotification(ctx context.Context, notification notify.Notification) error {
	model := Notification{
		AccountID: notification.AccountID,
		Title:     notification.Title,
		Body:      notification.Body,
		Kind:      notification.Kind,
		CreatedAt: time.Unix(notification.CreatedUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectNotification, errorCodeInsert, err)
	}
	return nil
}
