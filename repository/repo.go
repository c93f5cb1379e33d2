package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vivekg189/smart-classroom/constant"
	"github.com/vivekg189/smart-classroom/entities"
)

type LectureFileRepository interface {
	GetDB() *gorm.DB
	AutoMigrate() error
	CreateFile(ctx context.Context, file *entities.LectureFile) error
	FindFileById(ctx context.Context, id uuid.UUID) (*entities.LectureFile, error)
	ListFilesByLectureId(ctx context.Context, lectureId uuid.UUID) ([]*entities.LectureFile, error)
	UpdateTranscript(ctx context.Context, id uuid.UUID, status constant.TranscriptStatus, transcript *string) error
	DeleteFileById(ctx context.Context, id uuid.UUID) error
	SetPrimaryFile(ctx context.Context, lectureId uuid.UUID, fileId uuid.UUID) error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) LectureFileRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) AutoMigrate() error {
	return r.db.AutoMigrate(&entities.Lecture{}, &entities.LectureFile{})
}

func (r *repo) CreateFile(ctx context.Context, file *entities.LectureFile) error {
	err := r.GetDB().WithContext(ctx).Create(file).Error
	if err != nil {
		return err
	}
	return nil
}

func (r *repo) FindFileById(ctx context.Context, id uuid.UUID) (*entities.LectureFile, error) {
	file := &entities.LectureFile{}
	err := r.GetDB().WithContext(ctx).First(file, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (r *repo) ListFilesByLectureId(ctx context.Context, lectureId uuid.UUID) ([]*entities.LectureFile, error) {
	var files []*entities.LectureFile
	err := r.GetDB().WithContext(ctx).
		Where("lecture_id = ?", lectureId).
		Order("is_primary DESC, created_at ASC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *repo) UpdateTranscript(ctx context.Context, id uuid.UUID, status constant.TranscriptStatus, transcript *string) error {
	updates := map[string]interface{}{
		"transcript_status": status,
		"transcript":        transcript,
	}
	err := r.GetDB().WithContext(ctx).Model(&entities.LectureFile{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return err
	}
	return nil
}

func (r *repo) DeleteFileById(ctx context.Context, id uuid.UUID) error {
	err := r.GetDB().WithContext(ctx).Delete(&entities.LectureFile{}, "id = ?", id).Error
	if err != nil {
		return err
	}
	return nil
}

// SetPrimaryFile makes fileId the only primary file of its lecture. The check
// and the flip run in one transaction, and the flip is a single conditional
// update over the lecture's rows, so no interleaving can leave two primaries.
func (r *repo) SetPrimaryFile(ctx context.Context, lectureId uuid.UUID, fileId uuid.UUID) error {
	return r.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&entities.LectureFile{}).
			Where("id = ? AND lecture_id = ?", fileId, lectureId).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&entities.LectureFile{}).
			Where("lecture_id = ?", lectureId).
			Update("is_primary", gorm.Expr("(id = ?)", fileId)).Error
	})
}
