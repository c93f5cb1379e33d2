package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/vivekg189/smart-classroom/constant"
)

type LectureFile struct {
	ID               uuid.UUID                 `json:"id" gorm:"type:uuid;primary_key"`
	LectureID        uuid.UUID                 `json:"lecture_id" gorm:"type:uuid;not null;index:idx_lecture_files_lecture_id"`
	FileName         string                    `json:"file_name" gorm:"type:varchar(255);not null"`
	Kind             constant.FileKind         `json:"kind" gorm:"type:varchar(20);not null"`
	SizeBytes        int64                     `json:"size_bytes" gorm:"type:bigint;not null"`
	StoragePath      string                    `json:"storage_path" gorm:"type:varchar(500);not null;uniqueIndex:unique_storage_path"`
	ContentType      string                    `json:"content_type" gorm:"type:varchar(100);not null"`
	DurationSeconds  *int                      `json:"duration_seconds" gorm:"type:integer"`
	IsPrimary        bool                      `json:"is_primary" gorm:"not null;default:false"`
	Transcript       *string                   `json:"transcript" gorm:"type:text"`
	TranscriptStatus constant.TranscriptStatus `json:"transcript_status" gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt        time.Time                 `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time                 `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (LectureFile) TableName() string {
	return "lecture_files"
}
