package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vivekg189/smart-classroom/config"
	"github.com/vivekg189/smart-classroom/constant"
	"github.com/vivekg189/smart-classroom/dto"
	"github.com/vivekg189/smart-classroom/entities"
	"github.com/vivekg189/smart-classroom/media"
	"github.com/vivekg189/smart-classroom/pkg/metrics"
	"github.com/vivekg189/smart-classroom/repository"
	"github.com/vivekg189/smart-classroom/storage"
	"github.com/vivekg189/smart-classroom/transcribe"
)

// Pipeline error kinds. Every failure leaving the service wraps exactly one
// of these, so callers can classify with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage operation failed")
	ErrDatabase   = errors.New("database operation failed")
)

// transcriptPreviewLength bounds the transcript preview in listing views.
const transcriptPreviewLength = 200

type UploadService interface {
	Upload(ctx context.Context, request dto.UploadRequest) (*dto.UploadResult, error)
	Delete(ctx context.Context, fileId uuid.UUID) error
	SetPrimary(ctx context.Context, lectureId uuid.UUID, fileId uuid.UUID) error
	ListByLecture(ctx context.Context, lectureId uuid.UUID) ([]dto.LectureFileView, error)
}

type uploadService struct {
	repo   repository.LectureFileRepository
	store  storage.ObjectStore
	prober media.DurationProber
	engine transcribe.Engine
	cfg    *config.Config
}

func NewUploadService(
	repo repository.LectureFileRepository,
	store storage.ObjectStore,
	prober media.DurationProber,
	engine transcribe.Engine,
	cfg *config.Config,
) UploadService {
	return &uploadService{
		repo:   repo,
		store:  store,
		prober: prober,
		engine: engine,
		cfg:    cfg,
	}
}

// Upload runs the pipeline: validate, stage, store, probe, optional inline
// transcription, persist. The blob write happens before the metadata insert;
// when the insert fails the blob is removed again so no orphan survives.
func (s uploadService) Upload(ctx context.Context, request dto.UploadRequest) (*dto.UploadResult, error) {
	zerolog.Ctx(ctx).Info().
		Str("lecture_id", request.LectureID.String()).
		Str("file_name", request.FileName).
		Str("content_type", request.ContentType).
		Int64("size_bytes", request.SizeBytes).
		Msg("upload started")

	kind, err := s.validate(request)
	if err != nil {
		metrics.RecordUpload("unknown", "rejected", request.SizeBytes)
		return nil, err
	}

	tempDir := filepath.Join("temp", uuid.New().String())
	defer os.RemoveAll(tempDir)

	stagedPath, stagedSize, err := s.stage(request, tempDir)
	if err != nil {
		metrics.RecordUpload(string(kind), "failed", request.SizeBytes)
		return nil, err
	}

	objectPath := StorageKey(request.LectureID, request.FileName)
	if err := s.putObject(ctx, objectPath, stagedPath, stagedSize, request.ContentType); err != nil {
		metrics.RecordUpload(string(kind), "failed", stagedSize)
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("step", string(constant.StepUpload)).Str("object_path", objectPath).Msg("file stored")

	file := &entities.LectureFile{
		ID:               uuid.New(),
		LectureID:        request.LectureID,
		FileName:         request.FileName,
		Kind:             kind,
		SizeBytes:        stagedSize,
		StoragePath:      objectPath,
		ContentType:      request.ContentType,
		TranscriptStatus: constant.TranscriptPending,
	}

	if kind.HasDuration() {
		if seconds, probeErr := s.prober.Probe(ctx, stagedPath); probeErr != nil {
			zerolog.Ctx(ctx).Warn().Err(probeErr).Str("step", string(constant.StepProbe)).Msg("duration probe failed, storing without duration")
		} else {
			file.DurationSeconds = &seconds
		}
	}

	if request.Transcribe && kind.Transcribable() {
		s.transcribeInline(ctx, file, stagedPath)
	}

	if err := s.repo.CreateFile(ctx, file); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("step", string(constant.StepPersist)).Str("object_path", objectPath).Msg("metadata insert failed, removing stored object")
		if removeErr := s.store.Remove(ctx, objectPath); removeErr != nil {
			zerolog.Ctx(ctx).Error().Err(removeErr).Str("object_path", objectPath).Msg("compensating delete failed, object orphaned")
		}
		metrics.RecordUpload(string(kind), "failed", stagedSize)
		return nil, errors.Join(ErrDatabase, fmt.Errorf("persist metadata: %w", err))
	}

	metrics.RecordUpload(string(kind), "completed", stagedSize)
	zerolog.Ctx(ctx).Info().Str("file_id", file.ID.String()).Str("transcript_status", string(file.TranscriptStatus)).Msg("upload completed")

	return &dto.UploadResult{
		FileID:           file.ID,
		StoragePath:      objectPath,
		Kind:             kind,
		DurationSeconds:  file.DurationSeconds,
		TranscriptStatus: file.TranscriptStatus,
	}, nil
}

func (s uploadService) validate(request dto.UploadRequest) (constant.FileKind, error) {
	if request.SizeBytes > s.cfg.Upload.MaxBytes {
		return "", errors.Join(ErrValidation, fmt.Errorf("declared size %d exceeds limit %d", request.SizeBytes, s.cfg.Upload.MaxBytes))
	}
	kind, ok := s.cfg.Upload.AllowedTypes[request.ContentType]
	if !ok {
		return "", errors.Join(ErrValidation, fmt.Errorf("content type %q is not allowed", request.ContentType))
	}
	return kind, nil
}

// stage copies the payload to a temp file; probing and transcription need a
// local path. The byte count is re-checked so a lying declared size cannot
// smuggle an oversized file in.
func (s uploadService) stage(request dto.UploadRequest, tempDir string) (string, int64, error) {
	if err := os.MkdirAll(tempDir, os.ModePerm); err != nil {
		return "", 0, errors.Join(ErrStorage, fmt.Errorf("create staging dir: %w", err))
	}
	stagedPath := filepath.Join(tempDir, SanitizeFileName(request.FileName))
	out, err := os.Create(stagedPath)
	if err != nil {
		return "", 0, errors.Join(ErrStorage, fmt.Errorf("create staging file: %w", err))
	}
	written, err := io.Copy(out, io.LimitReader(request.Data, s.cfg.Upload.MaxBytes+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, errors.Join(ErrStorage, fmt.Errorf("stage payload: %w", err))
	}
	if written > s.cfg.Upload.MaxBytes {
		return "", 0, errors.Join(ErrValidation, fmt.Errorf("payload exceeds limit %d", s.cfg.Upload.MaxBytes))
	}
	return stagedPath, written, nil
}

func (s uploadService) putObject(ctx context.Context, objectPath, stagedPath string, size int64, contentType string) error {
	in, err := os.Open(stagedPath)
	if err != nil {
		return errors.Join(ErrStorage, fmt.Errorf("open staged file: %w", err))
	}
	defer in.Close()
	if err := s.store.Put(ctx, objectPath, in, size, contentType); err != nil {
		return errors.Join(ErrStorage, fmt.Errorf("upload bytes: %w", err))
	}
	return nil
}

// transcribeInline runs transcription as part of the upload and folds the
// outcome into the record before it is inserted. A transcription failure
// never fails the upload.
func (s uploadService) transcribeInline(ctx context.Context, file *entities.LectureFile, stagedPath string) {
	file.TranscriptStatus = constant.TranscriptProcessing
	zerolog.Ctx(ctx).Info().Str("step", string(constant.StepTranscribe)).Str("transcript_status", string(file.TranscriptStatus)).Msg("transcription started")
	start := time.Now()

	text, err := s.engine.Transcribe(ctx, stagedPath, s.cfg.Transcription.PreferRemote)
	if err != nil {
		file.Transcript = nil
		file.TranscriptStatus = constant.TranscriptFailed
		metrics.RecordTranscription("failed", time.Since(start))
		zerolog.Ctx(ctx).Warn().Err(err).Msg("transcription failed, keeping the upload")
		return
	}

	formatted := transcribe.Format(text)
	if formatted == "" {
		file.Transcript = nil
		file.TranscriptStatus = constant.TranscriptFailed
		metrics.RecordTranscription("failed", time.Since(start))
		zerolog.Ctx(ctx).Warn().Msg("transcription produced no text")
		return
	}

	file.Transcript = &formatted
	file.TranscriptStatus = constant.TranscriptCompleted
	metrics.RecordTranscription("completed", time.Since(start))
	zerolog.Ctx(ctx).Info().Int("transcript_chars", len(formatted)).Msg("transcription completed")
}

// Delete removes the blob first and the metadata row second. A failed blob
// delete only logs: the row still goes away and the orphaned object can be
// swept later. A failed row delete is an error, the record must not outlive
// the operation silently.
func (s uploadService) Delete(ctx context.Context, fileId uuid.UUID) error {
	file, err := s.repo.FindFileById(ctx, fileId)
	if err != nil {
		return errors.Join(ErrDatabase, fmt.Errorf("load file %s: %w", fileId, err))
	}

	if err := s.store.Remove(ctx, file.StoragePath); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("object_path", file.StoragePath).Msg("blob delete failed, removing metadata anyway")
	}

	if err := s.repo.DeleteFileById(ctx, fileId); err != nil {
		return errors.Join(ErrDatabase, fmt.Errorf("delete metadata: %w", err))
	}

	zerolog.Ctx(ctx).Info().Str("file_id", fileId.String()).Msg("file deleted")
	return nil
}

func (s uploadService) SetPrimary(ctx context.Context, lectureId uuid.UUID, fileId uuid.UUID) error {
	if err := s.repo.SetPrimaryFile(ctx, lectureId, fileId); err != nil {
		return errors.Join(ErrDatabase, fmt.Errorf("set primary file %s: %w", fileId, err))
	}
	zerolog.Ctx(ctx).Info().Str("lecture_id", lectureId.String()).Str("file_id", fileId.String()).Msg("primary file changed")
	return nil
}

func (s uploadService) ListByLecture(ctx context.Context, lectureId uuid.UUID) ([]dto.LectureFileView, error) {
	files, err := s.repo.ListFilesByLectureId(ctx, lectureId)
	if err != nil {
		return nil, errors.Join(ErrDatabase, fmt.Errorf("list files for lecture %s: %w", lectureId, err))
	}

	views := make([]dto.LectureFileView, 0, len(files))
	for _, file := range files {
		views = append(views, s.buildView(file))
	}
	return views, nil
}

func (s uploadService) buildView(file *entities.LectureFile) dto.LectureFileView {
	view := dto.LectureFileView{
		ID:               file.ID,
		LectureID:        file.LectureID,
		FileName:         file.FileName,
		Kind:             file.Kind,
		SizeBytes:        file.SizeBytes,
		StoragePath:      file.StoragePath,
		ContentType:      file.ContentType,
		DurationSeconds:  file.DurationSeconds,
		IsPrimary:        file.IsPrimary,
		TranscriptStatus: file.TranscriptStatus,
		URL:              s.store.PublicURL(file.StoragePath),
		CreatedAt:        file.CreatedAt,
	}
	if file.Transcript != nil {
		view.TranscriptPreview = transcribe.Summarize(*file.Transcript, transcriptPreviewLength)
	}
	return view
}

var unsafeFileNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeFileName replaces every character outside [A-Za-z0-9.-] with an
// underscore.
func SanitizeFileName(name string) string {
	return unsafeFileNameChars.ReplaceAllString(name, "_")
}

// StorageKey builds the object path for an upload. Lecture scoping plus a
// millisecond timestamp keeps keys unique in practice; the store still
// refuses overwrites should two uploads collide.
func StorageKey(lectureId uuid.UUID, fileName string) string {
	return fmt.Sprintf("lectures/%s/%d_%s", lectureId, time.Now().UnixMilli(), SanitizeFileName(fileName))
}
