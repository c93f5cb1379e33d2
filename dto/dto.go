package dto

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/vivekg189/smart-classroom/constant"
)

// UploadRequest describes one file upload attempt for a lecture. SizeBytes is
// the declared size; the pipeline re-checks the actual byte count while
// staging.
type UploadRequest struct {
	LectureID   uuid.UUID
	FileName    string
	ContentType string
	SizeBytes   int64
	Data        io.Reader
	Transcribe  bool
}

// UploadResult is returned to the caller once the upload pipeline finishes.
type UploadResult struct {
	FileID           uuid.UUID                 `json:"fileId"`
	StoragePath      string                    `json:"storagePath"`
	Kind             constant.FileKind         `json:"kind"`
	DurationSeconds  *int                      `json:"durationSeconds,omitempty"`
	TranscriptStatus constant.TranscriptStatus `json:"transcriptStatus"`
}

// LectureFileView is the listing shape for a stored lecture file.
type LectureFileView struct {
	ID                uuid.UUID                 `json:"id"`
	LectureID         uuid.UUID                 `json:"lectureId"`
	FileName          string                    `json:"fileName"`
	Kind              constant.FileKind         `json:"kind"`
	SizeBytes         int64                     `json:"sizeBytes"`
	StoragePath       string                    `json:"storagePath"`
	ContentType       string                    `json:"contentType"`
	DurationSeconds   *int                      `json:"durationSeconds,omitempty"`
	IsPrimary         bool                      `json:"isPrimary"`
	TranscriptStatus  constant.TranscriptStatus `json:"transcriptStatus"`
	TranscriptPreview string                    `json:"transcriptPreview,omitempty"`
	URL               string                    `json:"url"`
	CreatedAt         time.Time                 `json:"createdAt"`
}

// TranscriptionJobMessage is published to the transcription queue.
type TranscriptionJobMessage struct {
	FileID uuid.UUID `json:"fileId"`
}
