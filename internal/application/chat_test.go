package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"polybot/internal/domain/entity"
	"polybot/internal/infrastructure/storage"
	"polybot/internal/metrics"
)

type sentPhoto struct {
	chatID int64
	name   string
	data   []byte
}

type fakeMessenger struct {
	mu          sync.Mutex
	texts       []string
	photos      []sentPhoto
	files       map[string]string // file_id → путь на платформе
	downloadErr error
	downloaded  []string
}

func (m *fakeMessenger) SendText(ctx context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *fakeMessenger) SendPhoto(ctx context.Context, chatID int64, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos = append(m.photos, sentPhoto{chatID: chatID, name: name, data: data})
	return nil
}

func (m *fakeMessenger) DownloadFile(ctx context.Context, fileID string) (string, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloaded = append(m.downloaded, fileID)
	if m.downloadErr != nil {
		return "", nil, m.downloadErr
	}
	p, ok := m.files[fileID]
	if !ok {
		return "", nil, errors.New("file not found")
	}
	return p, []byte("photo:" + fileID), nil
}

type fakePredictor struct {
	summary *entity.PredictionSummary
	err     error
	keys    []string
}

func (p *fakePredictor) Predict(ctx context.Context, imageKey string) (*entity.PredictionSummary, error) {
	p.keys = append(p.keys, imageKey)
	return p.summary, p.err
}

type failingObjectStore struct {
	*storage.FSObjectStore
}

func (failingObjectStore) Put(context.Context, string, []byte) error {
	return errors.New("access denied")
}

type chatFixture struct {
	fs        afero.Fs
	messenger *fakeMessenger
	store     *storage.FSObjectStore
	predictor *fakePredictor
}

func newChatFixture() *chatFixture {
	fs := afero.NewMemMapFs()
	return &chatFixture{
		fs: fs,
		messenger: &fakeMessenger{files: map[string]string{
			"small": "photos/file_1.jpg",
			"large": "photos/file_2.jpg",
		}},
		store: storage.NewFSObjectStore(fs, "/bucket"),
		predictor: &fakePredictor{summary: &entity.PredictionSummary{
			PredictionID: "id-1",
			Labels:       []entity.Label{{Class: "dog"}, {Class: "dog"}, {Class: "cat"}},
		}},
	}
}

func (f *chatFixture) service() *ChatService {
	return NewChatService(f.messenger, f.store, f.predictor, ChatConfig{PhotosDir: "/photos-staging"}, WithChatFs(f.fs))
}

func photoMessage() entity.ChatMessage {
	return entity.ChatMessage{ChatID: 42, Photos: []entity.PhotoSize{
		{FileID: "small", Width: 90, Height: 90},
		{FileID: "large", Width: 1280, Height: 1280},
	}}
}

func TestChatService_EchoesText(t *testing.T) {
	f := newChatFixture()

	f.service().HandleMessage(context.Background(), entity.ChatMessage{ChatID: 1, Text: "hello there"})

	require.Equal(t, []string{"Your original message: hello there"}, f.messenger.texts)
	require.Empty(t, f.messenger.downloaded)
	require.Empty(t, f.predictor.keys)
}

func TestChatService_PhotoSuccess(t *testing.T) {
	f := newChatFixture()

	f.service().HandleMessage(context.Background(), photoMessage())

	require.Equal(t, []string{"large"}, f.messenger.downloaded)
	require.Equal(t, []string{"file_2.jpg"}, f.predictor.keys)

	data, err := f.store.Get(context.Background(), "file_2.jpg")
	require.NoError(t, err)
	require.Equal(t, []byte("photo:large"), data)

	require.Equal(t, []string{
		msgUploaded,
		"I found the following objects in your image: 2 dog, 1 cat.",
	}, f.messenger.texts)
	require.Empty(t, f.messenger.photos)

	// Локальная копия удалена после обработки.
	exists, err := afero.Exists(f.fs, filepath.Join("/photos-staging", "photos", "file_2.jpg"))
	require.NoError(t, err)
	require.False(t, exists)
}

func TestChatService_SendsAnnotatedImage(t *testing.T) {
	f := newChatFixture()
	require.NoError(t, f.store.Put(context.Background(), "predictions/id-1/file_2.jpg", []byte("annotated")))
	f.predictor.summary.PredictedImage = entity.ImageRef{Key: "predictions/id-1/file_2.jpg"}

	f.service().HandleMessage(context.Background(), photoMessage())

	require.Len(t, f.messenger.photos, 1)
	require.Equal(t, int64(42), f.messenger.photos[0].chatID)
	require.Equal(t, "file_2.jpg", f.messenger.photos[0].name)
	require.Equal(t, []byte("annotated"), f.messenger.photos[0].data)
}

func TestChatService_NothingDetected(t *testing.T) {
	f := newChatFixture()
	f.predictor.summary.Labels = []entity.Label{}

	f.service().HandleMessage(context.Background(), photoMessage())

	require.Equal(t, []string{msgUploaded, msgNothing}, f.messenger.texts)
}

func TestChatService_UploadFailureAborts(t *testing.T) {
	f := newChatFixture()
	svc := NewChatService(f.messenger, failingObjectStore{f.store}, f.predictor, ChatConfig{PhotosDir: "/photos-staging"}, WithChatFs(f.fs))

	svc.HandleMessage(context.Background(), photoMessage())

	require.Equal(t, []string{msgUploadFailed}, f.messenger.texts)
	require.Empty(t, f.predictor.keys)
}

func TestChatService_PredictionFailure(t *testing.T) {
	for name, predictor := range map[string]*fakePredictor{
		"error":       {err: entity.ErrImageNotFound},
		"nil summary": {},
	} {
		t.Run(name, func(t *testing.T) {
			f := newChatFixture()
			f.predictor = predictor

			f.service().HandleMessage(context.Background(), photoMessage())

			require.Equal(t, []string{msgUploaded, msgProcessFailed}, f.messenger.texts)
		})
	}
}

func TestChatService_DownloadFailure(t *testing.T) {
	f := newChatFixture()
	f.messenger.downloadErr = errors.New("telegram: bad gateway")

	f.service().HandleMessage(context.Background(), photoMessage())

	require.Equal(t, []string{msgDownloadFailed}, f.messenger.texts)
	require.Empty(t, f.predictor.keys)
}

func TestChatService_ApologiesAreDistinct(t *testing.T) {
	require.NotEqual(t, msgUploadFailed, msgProcessFailed)
	require.NotEqual(t, msgDownloadFailed, msgProcessFailed)
}

// unreadableFs сохраняет файлы, но не даёт их прочитать.
type unreadableFs struct {
	afero.Fs
}

func (unreadableFs) Open(string) (afero.File, error) {
	return nil, errors.New("input/output error")
}

func TestChatService_UploadsStagedCopy(t *testing.T) {
	f := newChatFixture()
	svc := NewChatService(f.messenger, f.store, f.predictor, ChatConfig{PhotosDir: "/photos-staging"},
		WithChatFs(unreadableFs{f.fs}))

	svc.HandleMessage(context.Background(), photoMessage())

	require.Equal(t, []string{msgDownloadFailed}, f.messenger.texts)
	require.Empty(t, f.predictor.keys)
	_, err := f.store.Get(context.Background(), "file_2.jpg")
	require.ErrorIs(t, err, entity.ErrNotFound)

	exists, err := afero.Exists(f.fs, filepath.Join("/photos-staging", "photos", "file_2.jpg"))
	require.NoError(t, err)
	require.False(t, exists)
}

func TestChatService_StagingDirUnavailable(t *testing.T) {
	f := newChatFixture()
	svc := NewChatService(f.messenger, f.store, f.predictor, ChatConfig{PhotosDir: "/photos-staging"},
		WithChatFs(afero.NewReadOnlyFs(afero.NewMemMapFs())))

	svc.HandleMessage(context.Background(), photoMessage())

	require.Equal(t, []string{msgDownloadFailed}, f.messenger.texts)
	require.Empty(t, f.predictor.keys)
}

func TestChatService_UploadedMessageNamesStore(t *testing.T) {
	f := newChatFixture()
	svc := NewChatService(f.messenger, f.store, f.predictor,
		ChatConfig{PhotosDir: "/photos-staging", StoreName: "S3"}, WithChatFs(f.fs))

	svc.HandleMessage(context.Background(), photoMessage())

	require.Equal(t, "Image successfully uploaded to S3.", f.messenger.texts[0])
}

func TestChatService_Metrics(t *testing.T) {
	f := newChatFixture()
	m, err := metrics.NewChatMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	svc := NewChatService(f.messenger, f.store, f.predictor, ChatConfig{PhotosDir: "/photos-staging"},
		WithChatFs(f.fs), WithChatMetrics(m))

	svc.HandleMessage(context.Background(), entity.ChatMessage{ChatID: 1, Text: "hi"})
	svc.HandleMessage(context.Background(), photoMessage())

	require.InDelta(t, 1, testutil.ToFloat64(m.ChatMessages.WithLabelValues(metrics.ChatEcho)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.ChatMessages.WithLabelValues(metrics.ChatAnswered)), 0)
}
