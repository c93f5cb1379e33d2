package constant

// FileKind is the broad category a lecture file is classified into. It is
// derived from the declared MIME type at validation time, never user supplied.
type FileKind string

const (
	FileKindAudio        FileKind = "audio"
	FileKindVideo        FileKind = "video"
	FileKindPDF          FileKind = "pdf"
	FileKindPresentation FileKind = "presentation"
	FileKindDocument     FileKind = "document"
)

// HasDuration reports whether files of this kind carry a playback duration.
func (k FileKind) HasDuration() bool {
	return k == FileKindAudio || k == FileKindVideo
}

// Transcribable reports whether files of this kind go through speech
// transcription. Only plain audio does; video soundtracks are out of scope.
func (k FileKind) Transcribable() bool {
	return k == FileKindAudio
}

// TranscriptStatus tracks the transcription lifecycle of a lecture file.
type TranscriptStatus string

const (
	TranscriptPending    TranscriptStatus = "pending"
	TranscriptProcessing TranscriptStatus = "processing"
	TranscriptCompleted  TranscriptStatus = "completed"
	TranscriptFailed     TranscriptStatus = "failed"
)

// UploadStep names the stages of the upload pipeline for logs and error
// messages.
type UploadStep string

const (
	StepValidate   UploadStep = "validate"
	StepUpload     UploadStep = "upload"
	StepProbe      UploadStep = "probe_duration"
	StepTranscribe UploadStep = "transcribe"
	StepPersist    UploadStep = "persist_metadata"
)

// AllowedContentTypes is the fixed MIME allow-list for lecture uploads and the
// kind each type maps to. Types outside this table are rejected.
var AllowedContentTypes = map[string]FileKind{
	"audio/mpeg":      FileKindAudio,
	"audio/mp3":       FileKindAudio,
	"audio/wav":       FileKindAudio,
	"audio/x-wav":     FileKindAudio,
	"audio/ogg":       FileKindAudio,
	"audio/webm":      FileKindAudio,
	"audio/mp4":       FileKindAudio,
	"audio/aac":       FileKindAudio,
	"video/mp4":       FileKindVideo,
	"video/webm":      FileKindVideo,
	"application/pdf": FileKindPDF,
	"application/vnd.ms-powerpoint":                                             FileKindPresentation,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": FileKindPresentation,
	"application/msword": FileKindDocument,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FileKindDocument,
	"text/plain": FileKindDocument,
}

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
