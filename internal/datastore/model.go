package datastore

import "time"

// AnnotationRecord is one selected label of one user's annotation.
type AnnotationRecord struct {
	ID         uint   `gorm:"primaryKey"`
	User       string `gorm:"column:user_id;size:191;not null;uniqueIndex:idx_annotation_label,priority:1"`
	InstanceID string `gorm:"size:191;not null;uniqueIndex:idx_annotation_label,priority:2"`
	Schema     string `gorm:"column:schema_name;size:191;not null;uniqueIndex:idx_annotation_label,priority:3"`
	Label      string `gorm:"size:191;not null;uniqueIndex:idx_annotation_label,priority:4"`
	Value      string
	UpdatedAt  time.Time
}

// QueueEntry is one position of a user's queue.
type QueueEntry struct {
	ID         uint   `gorm:"primaryKey"`
	User       string `gorm:"column:user_id;size:191;not null;index:idx_queue_user_position,priority:1"`
	Position   int    `gorm:"not null;index:idx_queue_user_position,priority:2"`
	InstanceID string `gorm:"size:191;not null"`
}
