package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vivekg189/smart-classroom/config"
	"github.com/vivekg189/smart-classroom/constant"
	"github.com/vivekg189/smart-classroom/dto"
	"github.com/vivekg189/smart-classroom/pkg/metrics"
	"github.com/vivekg189/smart-classroom/repository"
	"github.com/vivekg189/smart-classroom/storage"
	"github.com/vivekg189/smart-classroom/transcribe"
)

// JobPublisher enqueues transcription jobs for the queue consumer.
type JobPublisher interface {
	PublishTranscriptionJob(ctx context.Context, message dto.TranscriptionJobMessage) error
}

// TranscriptionService runs transcription for already stored lecture audio,
// detached from the upload request.
type TranscriptionService interface {
	// Request marks the file pending and enqueues a job for it.
	Request(ctx context.Context, fileId uuid.UUID) error
	// Process executes one queued job. It never asks for a redelivery:
	// failures mark the file failed and the message is consumed.
	Process(ctx context.Context, message dto.TranscriptionJobMessage) error
}

type transcriptionService struct {
	repo      repository.LectureFileRepository
	store     storage.ObjectStore
	engine    transcribe.Engine
	publisher JobPublisher
	cfg       *config.Config
}

func NewTranscriptionService(
	repo repository.LectureFileRepository,
	store storage.ObjectStore,
	engine transcribe.Engine,
	publisher JobPublisher,
	cfg *config.Config,
) TranscriptionService {
	return &transcriptionService{
		repo:      repo,
		store:     store,
		engine:    engine,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s transcriptionService) Request(ctx context.Context, fileId uuid.UUID) error {
	file, err := s.repo.FindFileById(ctx, fileId)
	if err != nil {
		return errors.Join(ErrDatabase, fmt.Errorf("load file %s: %w", fileId, err))
	}
	if !file.Kind.Transcribable() {
		return errors.Join(ErrValidation, fmt.Errorf("file %s is %s, only audio is transcribed", fileId, file.Kind))
	}
	if file.TranscriptStatus == constant.TranscriptProcessing {
		return errors.Join(ErrValidation, fmt.Errorf("file %s is already being transcribed", fileId))
	}

	if err := s.repo.UpdateTranscript(ctx, fileId, constant.TranscriptPending, nil); err != nil {
		return errors.Join(ErrDatabase, fmt.Errorf("reset transcript status: %w", err))
	}
	if err := s.publisher.PublishTranscriptionJob(ctx, dto.TranscriptionJobMessage{FileID: fileId}); err != nil {
		return fmt.Errorf("enqueue transcription job: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("file_id", fileId.String()).Msg("transcription job enqueued")
	return nil
}

func (s transcriptionService) Process(ctx context.Context, message dto.TranscriptionJobMessage) (err error) {
	zerolog.Ctx(ctx).Info().Str("file_id", message.FileID.String()).Msg("processing transcription job")
	start := time.Now()

	file, err := s.repo.FindFileById(ctx, message.FileID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("file_id", message.FileID.String()).Msg("failed to load file for transcription")
		return err
	}

	if file.TranscriptStatus != constant.TranscriptPending {
		zerolog.Ctx(ctx).Info().Str("file_id", message.FileID.String()).Str("transcript_status", string(file.TranscriptStatus)).Msg("file is not pending transcription")
		return nil
	}

	if err = s.repo.UpdateTranscript(ctx, file.ID, constant.TranscriptProcessing, nil); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to mark transcription processing")
		return err
	}

	defer func() {
		if err != nil {
			if updateErr := s.repo.UpdateTranscript(ctx, message.FileID, constant.TranscriptFailed, nil); updateErr != nil {
				zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to mark transcription failed")
			}
			metrics.RecordTranscription("failed", time.Since(start))
			// Transcription is not retried on redelivery, the failure is
			// recorded on the row and the message is done.
			err = nil
		}
	}()

	tempDir := filepath.Join("temp", message.FileID.String())
	defer os.RemoveAll(tempDir)
	if err = os.MkdirAll(tempDir, os.ModePerm); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to create temp dir")
		return err
	}

	audioPath := filepath.Join(tempDir, filepath.Base(file.StoragePath))
	if err = s.fetchObject(ctx, file.StoragePath, audioPath); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("object_path", file.StoragePath).Msg("failed to fetch audio from storage")
		return err
	}

	text, err := s.engine.Transcribe(ctx, audioPath, s.cfg.Transcription.PreferRemote)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("file_id", file.ID.String()).Msg("transcription failed")
		return err
	}

	formatted := transcribe.Format(text)
	if formatted == "" {
		err = errors.New("transcription produced no text")
		return err
	}

	if err = s.repo.UpdateTranscript(ctx, file.ID, constant.TranscriptCompleted, &formatted); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to store transcript")
		return err
	}

	metrics.RecordTranscription("completed", time.Since(start))
	zerolog.Ctx(ctx).Info().Str("file_id", file.ID.String()).Int("transcript_chars", len(formatted)).Msg("transcription job completed")
	return nil
}

func (s transcriptionService) fetchObject(ctx context.Context, objectPath, localPath string) error {
	obj, err := s.store.Get(ctx, objectPath)
	if err != nil {
		return err
	}
	defer obj.Close()

	out, err := os.Create(localPath)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, obj)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}
