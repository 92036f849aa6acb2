package transcripts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/podbrief/podbrief-api/internal/models"
	appErr "github.com/podbrief/podbrief-api/pkg/errors"
)

// mockRepository is a test double for the Repository interface
type mockRepository struct {
	mu sync.Mutex

	getFunc       func(ctx context.Context, episodeID, language string) (*models.Transcript, error)
	upsertFunc    func(ctx context.Context, transcript *models.Transcript) error
	deleteFunc    func(ctx context.Context, episodeID, language string) error
	incrementFunc func(ctx context.Context, episodeID, language string) error

	upserted   []*models.Transcript
	increments chan string
}

func newMockRepository() *mockRepository {
	return &mockRepository{increments: make(chan string, 8)}
}

func (m *mockRepository) GetByEpisodeAndLanguage(ctx context.Context, episodeID, language string) (*models.Transcript, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, episodeID, language)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRepository) Upsert(ctx context.Context, transcript *models.Transcript) error {
	m.mu.Lock()
	m.upserted = append(m.upserted, transcript)
	m.mu.Unlock()
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, transcript)
	}
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, episodeID, language string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, episodeID, language)
	}
	return nil
}

func (m *mockRepository) IncrementViewCount(ctx context.Context, episodeID, language string) error {
	var err error
	if m.incrementFunc != nil {
		err = m.incrementFunc(ctx, episodeID, language)
	}
	m.increments <- episodeID + "/" + language
	return err
}

func (m *mockRepository) lastUpserted() *models.Transcript {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.upserted) == 0 {
		return nil
	}
	return m.upserted[len(m.upserted)-1]
}

func TestGetTranscriptNotFound(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	_, err := service.GetTranscript(context.Background(), "ep-1", "en")
	if err == nil {
		t.Fatal("Expected error for missing transcript")
	}
	if appErr.GetCode(err) != appErr.ErrCodeNotFound {
		t.Errorf("Expected ErrCodeNotFound, got %s", appErr.GetCode(err))
	}
}

func TestGetTranscriptDatabaseError(t *testing.T) {
	repo := newMockRepository()
	repo.getFunc = func(ctx context.Context, episodeID, language string) (*models.Transcript, error) {
		return nil, errors.New("disk I/O error")
	}
	service := NewService(repo)

	_, err := service.GetTranscript(context.Background(), "ep-1", "en")
	if appErr.GetCode(err) != appErr.ErrCodeDatabaseQuery {
		t.Errorf("Expected ErrCodeDatabaseQuery, got %s", appErr.GetCode(err))
	}
}

func TestUpsertTranscriptValidation(t *testing.T) {
	service := NewService(newMockRepository())

	if err := service.UpsertTranscript(context.Background(), nil); err == nil {
		t.Error("Expected error for nil transcript")
	}

	err := service.UpsertTranscript(context.Background(), &models.Transcript{Language: "en"})
	if err == nil {
		t.Error("Expected error for missing episode ID")
	}
}

func TestUpsertTranscriptDefaultsStatus(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	err := service.UpsertTranscript(context.Background(), &models.Transcript{
		EpisodeID: "ep-1",
		Language:  "en",
		Content:   "full text",
	})
	if err != nil {
		t.Fatalf("UpsertTranscript() error = %v", err)
	}

	if got := repo.lastUpserted().Status; got != models.JobStatusFinished {
		t.Errorf("Expected status finished, got %s", got)
	}
}

func TestMarkProcessingAndFailed(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	if err := service.MarkProcessing(context.Background(), "ep-1", "en"); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}
	if got := repo.lastUpserted().Status; got != models.JobStatusProcessing {
		t.Errorf("Expected status processing, got %s", got)
	}

	if err := service.MarkFailed(context.Background(), "ep-1", "en", "upstream timeout"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	last := repo.lastUpserted()
	if last.Status != models.JobStatusFailed {
		t.Errorf("Expected status failed, got %s", last.Status)
	}
	if last.Error != "upstream timeout" {
		t.Errorf("Expected failure reason to be recorded, got %q", last.Error)
	}
}

func TestDeleteTranscriptNotFound(t *testing.T) {
	repo := newMockRepository()
	repo.deleteFunc = func(ctx context.Context, episodeID, language string) error {
		return gorm.ErrRecordNotFound
	}
	service := NewService(repo)

	err := service.DeleteTranscript(context.Background(), "ep-1", "en")
	if appErr.GetCode(err) != appErr.ErrCodeNotFound {
		t.Errorf("Expected ErrCodeNotFound, got %s", appErr.GetCode(err))
	}
}

func TestRecordViewDoesNotBlock(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	service.RecordView("ep-1", "en")

	select {
	case key := <-repo.increments:
		if key != "ep-1/en" {
			t.Errorf("Incremented wrong row: %s", key)
		}
	case <-time.After(time.Second):
		t.Fatal("IncrementViewCount was never called")
	}
}

func TestRecordViewSwallowsErrors(t *testing.T) {
	repo := newMockRepository()
	repo.incrementFunc = func(ctx context.Context, episodeID, language string) error {
		return errors.New("database locked")
	}
	service := NewService(repo)

	// Must not panic or surface the error to the caller.
	service.RecordView("ep-1", "en")

	select {
	case <-repo.increments:
	case <-time.After(time.Second):
		t.Fatal("IncrementViewCount was never called")
	}
}
