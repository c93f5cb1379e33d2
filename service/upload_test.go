package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vivekg189/smart-classroom/config"
	"github.com/vivekg189/smart-classroom/constant"
	"github.com/vivekg189/smart-classroom/dto"
	"github.com/vivekg189/smart-classroom/entities"
	"github.com/vivekg189/smart-classroom/storage"
)

type fakeRepo struct {
	files     map[uuid.UUID]*entities.LectureFile
	createErr error
	deleteErr error
	listErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{files: make(map[uuid.UUID]*entities.LectureFile)}
}

func (f *fakeRepo) GetDB() *gorm.DB    { return nil }
func (f *fakeRepo) AutoMigrate() error { return nil }

func (f *fakeRepo) CreateFile(ctx context.Context, file *entities.LectureFile) error {
	if f.createErr != nil {
		return f.createErr
	}
	clone := *file
	f.files[file.ID] = &clone
	return nil
}

func (f *fakeRepo) FindFileById(ctx context.Context, id uuid.UUID) (*entities.LectureFile, error) {
	file, ok := f.files[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *file
	return &clone, nil
}

func (f *fakeRepo) ListFilesByLectureId(ctx context.Context, lectureId uuid.UUID) ([]*entities.LectureFile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var files []*entities.LectureFile
	for _, file := range f.files {
		if file.LectureID == lectureId {
			clone := *file
			files = append(files, &clone)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].IsPrimary != files[j].IsPrimary {
			return files[i].IsPrimary
		}
		return files[i].CreatedAt.Before(files[j].CreatedAt)
	})
	return files, nil
}

func (f *fakeRepo) UpdateTranscript(ctx context.Context, id uuid.UUID, status constant.TranscriptStatus, transcript *string) error {
	if file, ok := f.files[id]; ok {
		file.TranscriptStatus = status
		file.Transcript = transcript
	}
	return nil
}

func (f *fakeRepo) DeleteFileById(ctx context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.files, id)
	return nil
}

func (f *fakeRepo) SetPrimaryFile(ctx context.Context, lectureId uuid.UUID, fileId uuid.UUID) error {
	target, ok := f.files[fileId]
	if !ok || target.LectureID != lectureId {
		return gorm.ErrRecordNotFound
	}
	for _, file := range f.files {
		if file.LectureID == lectureId {
			file.IsPrimary = file.ID == fileId
		}
	}
	return nil
}

type countingStore struct {
	*storage.Memory
	puts      int
	removes   int
	putErr    error
	removeErr error
}

func newCountingStore() *countingStore {
	return &countingStore{Memory: storage.NewMemory()}
}

func (c *countingStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	return c.Memory.Put(ctx, key, r, size, contentType)
}

func (c *countingStore) Remove(ctx context.Context, key string) error {
	c.removes++
	if c.removeErr != nil {
		return c.removeErr
	}
	return c.Memory.Remove(ctx, key)
}

type stubProber struct {
	seconds int
	err     error
	calls   int
}

func (p *stubProber) Probe(ctx context.Context, path string) (int, error) {
	p.calls++
	return p.seconds, p.err
}

type stubEngine struct {
	text       string
	err        error
	calls      int
	lastPrefer bool
}

func (e *stubEngine) Transcribe(ctx context.Context, audioPath string, preferRemote bool) (string, error) {
	e.calls++
	e.lastPrefer = preferRemote
	return e.text, e.err
}

func (e *stubEngine) LocalSupported() bool { return false }

func testConfig() *config.Config {
	return &config.Config{
		Upload: config.Upload{
			MaxBytes:     1 << 20,
			AllowedTypes: constant.AllowedContentTypes,
		},
	}
}

type uploadFixture struct {
	svc    UploadService
	repo   *fakeRepo
	store  *countingStore
	prober *stubProber
	engine *stubEngine
	cfg    *config.Config
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()
	t.Cleanup(func() { os.RemoveAll("temp") })
	f := &uploadFixture{
		repo:   newFakeRepo(),
		store:  newCountingStore(),
		prober: &stubProber{seconds: 61},
		engine: &stubEngine{text: "hello class"},
		cfg:    testConfig(),
	}
	f.svc = NewUploadService(f.repo, f.store, f.prober, f.engine, f.cfg)
	return f
}

func audioRequest(lectureId uuid.UUID, payload string) dto.UploadRequest {
	return dto.UploadRequest{
		LectureID:   lectureId,
		FileName:    "lecture notes.mp3",
		ContentType: "audio/mpeg",
		SizeBytes:   int64(len(payload)),
		Data:        strings.NewReader(payload),
	}
}

func TestUploadRejectsOversizedDeclaredSize(t *testing.T) {
	f := newUploadFixture(t)
	f.cfg.Upload.MaxBytes = 100 << 20

	request := audioRequest(uuid.New(), "tiny")
	request.SizeBytes = 100<<20 + 1

	_, err := f.svc.Upload(context.Background(), request)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	if f.store.puts != 0 {
		t.Errorf("store saw %d puts for a rejected upload, want 0", f.store.puts)
	}
	if len(f.repo.files) != 0 {
		t.Errorf("repo has %d records for a rejected upload, want 0", len(f.repo.files))
	}
}

func TestUploadAcceptsExactlyAtLimit(t *testing.T) {
	f := newUploadFixture(t)
	request := audioRequest(uuid.New(), "payload")
	request.SizeBytes = f.cfg.Upload.MaxBytes

	if _, err := f.svc.Upload(context.Background(), request); err != nil {
		t.Fatalf("upload at the exact limit failed: %v", err)
	}
}

func TestUploadRejectsUnknownContentType(t *testing.T) {
	f := newUploadFixture(t)
	request := audioRequest(uuid.New(), "payload")
	request.ContentType = "application/x-msdownload"

	_, err := f.svc.Upload(context.Background(), request)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	if f.store.puts != 0 {
		t.Errorf("store saw %d puts for a rejected upload, want 0", f.store.puts)
	}
}

func TestUploadRejectsActualSizeOverLimit(t *testing.T) {
	f := newUploadFixture(t)
	payload := strings.Repeat("x", int(f.cfg.Upload.MaxBytes)+1)
	request := audioRequest(uuid.New(), payload)
	// The declared size lies.
	request.SizeBytes = 10

	_, err := f.svc.Upload(context.Background(), request)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	if f.store.puts != 0 {
		t.Errorf("store saw %d puts, want 0", f.store.puts)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	f := newUploadFixture(t)
	lectureId := uuid.New()
	payload := "fake mp3 payload"

	result, err := f.svc.Upload(context.Background(), audioRequest(lectureId, payload))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	pattern := fmt.Sprintf(`^lectures/%s/\d+_lecture_notes\.mp3$`, lectureId)
	if !regexp.MustCompile(pattern).MatchString(result.StoragePath) {
		t.Errorf("storage path %q does not match %q", result.StoragePath, pattern)
	}
	if !f.store.Has(result.StoragePath) {
		t.Errorf("no object stored at %s", result.StoragePath)
	}

	views, err := f.svc.ListByLecture(context.Background(), lectureId)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d files, want 1", len(views))
	}
	view := views[0]
	if view.SizeBytes != int64(len(payload)) {
		t.Errorf("size = %d, want %d", view.SizeBytes, len(payload))
	}
	if view.ContentType != "audio/mpeg" || view.Kind != constant.FileKindAudio {
		t.Errorf("got type=%s kind=%s, want audio/mpeg and audio", view.ContentType, view.Kind)
	}
	if view.StoragePath != result.StoragePath {
		t.Errorf("listed path %q, want %q", view.StoragePath, result.StoragePath)
	}
	if view.URL == "" {
		t.Error("view carries no URL")
	}
	if view.DurationSeconds == nil || *view.DurationSeconds != 61 {
		t.Errorf("duration = %v, want 61", view.DurationSeconds)
	}
}

func TestUploadCompensatesFailedInsert(t *testing.T) {
	f := newUploadFixture(t)
	f.repo.createErr = errors.New("insert refused")

	_, err := f.svc.Upload(context.Background(), audioRequest(uuid.New(), "payload"))
	if !errors.Is(err, ErrDatabase) {
		t.Fatalf("got %v, want ErrDatabase", err)
	}
	if f.store.removes != 1 {
		t.Errorf("store saw %d removes, want exactly 1 compensating delete", f.store.removes)
	}
	if f.store.Len() != 0 {
		t.Errorf("%d objects left in the store, want 0", f.store.Len())
	}
}

func TestUploadStorageFailureAbortsPipeline(t *testing.T) {
	f := newUploadFixture(t)
	f.store.putErr = errors.New("bucket gone")

	_, err := f.svc.Upload(context.Background(), audioRequest(uuid.New(), "payload"))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("got %v, want ErrStorage", err)
	}
	if len(f.repo.files) != 0 {
		t.Errorf("repo has %d records after a storage failure, want 0", len(f.repo.files))
	}
}

func TestUploadInlineTranscriptionCompletes(t *testing.T) {
	f := newUploadFixture(t)
	f.engine.text = "welcome   to physics"
	lectureId := uuid.New()

	request := audioRequest(lectureId, "payload")
	request.Transcribe = true

	result, err := f.svc.Upload(context.Background(), request)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if result.TranscriptStatus != constant.TranscriptCompleted {
		t.Fatalf("status = %s, want completed", result.TranscriptStatus)
	}
	if f.engine.calls != 1 {
		t.Errorf("engine called %d times, want 1", f.engine.calls)
	}

	stored, err := f.repo.FindFileById(context.Background(), result.FileID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored.Transcript == nil || *stored.Transcript != "Welcome to physics." {
		t.Errorf("transcript = %v, want the formatted text", stored.Transcript)
	}
}

func TestUploadInlineTranscriptionFailureKeepsUpload(t *testing.T) {
	f := newUploadFixture(t)
	f.engine.err = errors.New("no transcription path worked")

	request := audioRequest(uuid.New(), "payload")
	request.Transcribe = true

	result, err := f.svc.Upload(context.Background(), request)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if result.TranscriptStatus != constant.TranscriptFailed {
		t.Errorf("status = %s, want failed", result.TranscriptStatus)
	}
	stored, err := f.repo.FindFileById(context.Background(), result.FileID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored.Transcript != nil {
		t.Errorf("transcript = %q, want none", *stored.Transcript)
	}
}

func TestUploadEmptyTranscriptIsFailure(t *testing.T) {
	f := newUploadFixture(t)
	f.engine.text = "   \n\t "

	request := audioRequest(uuid.New(), "payload")
	request.Transcribe = true

	result, err := f.svc.Upload(context.Background(), request)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if result.TranscriptStatus != constant.TranscriptFailed {
		t.Errorf("status = %s, want failed for an empty transcript", result.TranscriptStatus)
	}
}

func TestUploadSkipsTranscriptionAndProbeForDocuments(t *testing.T) {
	f := newUploadFixture(t)
	request := dto.UploadRequest{
		LectureID:   uuid.New(),
		FileName:    "slides.pdf",
		ContentType: "application/pdf",
		SizeBytes:   8,
		Data:        strings.NewReader("pdfbytes"),
		Transcribe:  true,
	}

	result, err := f.svc.Upload(context.Background(), request)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if f.engine.calls != 0 {
		t.Errorf("engine called %d times for a pdf, want 0", f.engine.calls)
	}
	if f.prober.calls != 0 {
		t.Errorf("prober called %d times for a pdf, want 0", f.prober.calls)
	}
	if result.TranscriptStatus != constant.TranscriptPending {
		t.Errorf("status = %s, want pending", result.TranscriptStatus)
	}
	if result.DurationSeconds != nil {
		t.Errorf("duration = %d, want none", *result.DurationSeconds)
	}
}

func TestUploadContinuesWhenProbeFails(t *testing.T) {
	f := newUploadFixture(t)
	f.prober.err = errors.New("unreadable container")

	result, err := f.svc.Upload(context.Background(), audioRequest(uuid.New(), "payload"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if result.DurationSeconds != nil {
		t.Errorf("duration = %d, want none after a probe failure", *result.DurationSeconds)
	}
}

func TestDeleteRemovesRowEvenWhenBlobDeleteFails(t *testing.T) {
	f := newUploadFixture(t)
	result, err := f.svc.Upload(context.Background(), audioRequest(uuid.New(), "payload"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	f.store.removeErr = errors.New("storage offline")
	if err := f.svc.Delete(context.Background(), result.FileID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := f.repo.FindFileById(context.Background(), result.FileID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("record still present after delete: %v", err)
	}
}

func TestDeleteFailsWhenRowDeleteFails(t *testing.T) {
	f := newUploadFixture(t)
	result, err := f.svc.Upload(context.Background(), audioRequest(uuid.New(), "payload"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	f.repo.deleteErr = errors.New("constraint violation")
	if err := f.svc.Delete(context.Background(), result.FileID); !errors.Is(err, ErrDatabase) {
		t.Fatalf("got %v, want ErrDatabase", err)
	}
}

func TestDeleteMissingFile(t *testing.T) {
	f := newUploadFixture(t)
	err := f.svc.Delete(context.Background(), uuid.New())
	if !errors.Is(err, ErrDatabase) || !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("got %v, want ErrDatabase wrapping gorm.ErrRecordNotFound", err)
	}
}

func TestSetPrimaryLeavesSingleWinner(t *testing.T) {
	f := newUploadFixture(t)
	lectureId := uuid.New()

	first, err := f.svc.Upload(context.Background(), audioRequest(lectureId, "one"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	second, err := f.svc.Upload(context.Background(), audioRequest(lectureId, "two"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if err := f.svc.SetPrimary(context.Background(), lectureId, first.FileID); err != nil {
		t.Fatalf("set primary failed: %v", err)
	}
	if err := f.svc.SetPrimary(context.Background(), lectureId, second.FileID); err != nil {
		t.Fatalf("set primary failed: %v", err)
	}

	views, err := f.svc.ListByLecture(context.Background(), lectureId)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	primaries := 0
	for _, view := range views {
		if view.IsPrimary {
			primaries++
			if view.ID != second.FileID {
				t.Errorf("primary is %s, want %s", view.ID, second.FileID)
			}
		}
	}
	if primaries != 1 {
		t.Errorf("lecture has %d primary files, want exactly 1", primaries)
	}
}

func TestSetPrimaryRejectsFileOfAnotherLecture(t *testing.T) {
	f := newUploadFixture(t)
	result, err := f.svc.Upload(context.Background(), audioRequest(uuid.New(), "payload"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	err = f.svc.SetPrimary(context.Background(), uuid.New(), result.FileID)
	if !errors.Is(err, ErrDatabase) || !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("got %v, want ErrDatabase wrapping gorm.ErrRecordNotFound", err)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "lecture notes.mp3", want: "lecture_notes.mp3"},
		{in: "week#1/audio?.wav", want: "week_1_audio_.wav"},
		{in: "plain.pdf", want: "plain.pdf"},
		{in: "тема.mp3", want: "____.mp3"},
		{in: "a b\tc", want: "a_b_c"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStorageKeyShape(t *testing.T) {
	lectureId := uuid.New()
	key := StorageKey(lectureId, "week 1?.mp3")
	pattern := fmt.Sprintf(`^lectures/%s/\d+_week_1_\.mp3$`, lectureId)
	if !regexp.MustCompile(pattern).MatchString(key) {
		t.Errorf("key %q does not match %q", key, pattern)
	}
}
