package worker

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/service"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/storage"
)

// fileEncoder 在磁盘上生成封面与切片，可按次数注入失败
type fileEncoder struct {
	mu         sync.Mutex
	frameErrs  []error
	segmentErr error
	frames     int
	segments   int
}

func (e *fileEncoder) ExtractFrame(_ context.Context, _ string, _ time.Duration, out string) error {
	e.mu.Lock()
	e.frames++
	var err error
	if len(e.frameErrs) > 0 {
		err = e.frameErrs[0]
		e.frameErrs = e.frameErrs[1:]
	}
	e.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(out, []byte("jpg"), 0o644)
}

func (e *fileEncoder) TranscodeToSegmentedStream(_ context.Context, _ string, _ int, playlist string) error {
	e.mu.Lock()
	e.segments++
	err := e.segmentErr
	e.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(playlist), "playlist0.ts"), []byte("ts"), 0o644); err != nil {
		return err
	}
	return os.WriteFile(playlist, []byte("#EXTM3U\n"), 0o644)
}

func (e *fileEncoder) Calls() (frames, segments int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames, e.segments
}

type flowFixture struct {
	repo    repo.MediaAssetRepository
	store   *storage.LocalStorage
	queue   *recordingQueue
	encoder *fileEncoder
	worker  TranscodeWorker
	asset   *entity.MediaAssetEntity
	task    *entity.TranscodeTask
}

func newFlowFixture(t *testing.T, encoder *fileEncoder) *flowFixture {
	t.Helper()
	ctx := context.Background()
	r, _ := newTestRepo(t)
	store, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	_, err = store.Write(ctx, "tmp/uploads/trip.mp4", strings.NewReader("video-bytes"), 0)
	require.NoError(t, err)
	asset := entity.NewMediaAssetEntity("trip", vo.MediaKindVideo, "tmp/uploads/trip.mp4")
	require.NoError(t, r.CreateMedia(ctx, asset))

	q := newRecordingQueue()
	job := service.NewTranscodeJob(r, store, encoder, nil, nil, service.TranscodeJobOptions{})
	w := NewTranscodeWorker("flow", q, job, vo.NewRetryPolicy(3, 60*time.Second), 1)
	w.(*transcodeWorkerImpl).recordDelay = time.Millisecond
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		_ = w.Stop()
		_ = q.Close()
	})

	f := &flowFixture{repo: r, store: store, queue: q, encoder: encoder, worker: w, asset: asset}
	f.task = entity.NewTranscodeTask(asset.MediaUUID(), "tmp/uploads/trip.mp4", "media/videos/out", "media/thumbnails/out.jpg", 3)
	require.NoError(t, q.Enqueue(ctx, f.task))
	return f
}

func (f *flowFixture) waitSettled(t *testing.T) *entity.MediaAssetEntity {
	t.Helper()
	var got *entity.MediaAssetEntity
	require.Eventually(t, func() bool {
		a, err := f.repo.GetMedia(context.Background(), f.asset.MediaUUID())
		if err != nil || a == nil {
			return false
		}
		got = a
		return a.IsSettled()
	}, 5*time.Second, 10*time.Millisecond)
	return got
}

func TestFlowEncoderAlwaysFailingEndsFailed(t *testing.T) {
	encoder := &fileEncoder{segmentErr: errors.New("exit status 1: Invalid data found when processing input")}
	f := newFlowFixture(t, encoder)

	got := f.waitSettled(t)

	assert.Equal(t, vo.MediaStatusFailed, got.Status())
	assert.Nil(t, got.OutputPath())
	assert.Nil(t, got.ThumbnailPath())
	assert.Equal(t, 3, got.Attempts())
	assert.Contains(t, got.ErrorMessage(), "encoding_failed")

	_, segments := encoder.Calls()
	assert.Equal(t, 3, segments)
	assert.Equal(t, []time.Duration{60 * time.Second, 60 * time.Second}, f.queue.Delays())

	exists, err := f.store.Exists(context.Background(), "tmp/uploads/trip.mp4")
	require.NoError(t, err)
	assert.True(t, exists, "source kept after terminal failure")

	require.Eventually(t, func() bool { return f.worker.GetStats().FailedTasks == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(2), f.worker.GetStats().RetriedTasks)
}

func TestFlowEncoderUnavailableThenSucceeds(t *testing.T) {
	encoder := &fileEncoder{frameErrs: []error{
		vo.NewJobError(vo.JobErrorEncoderUnavailable, "extract frame", exec.ErrNotFound),
	}}
	f := newFlowFixture(t, encoder)

	got := f.waitSettled(t)

	assert.Equal(t, vo.MediaStatusSuccess, got.Status())
	require.NotNil(t, got.OutputPath())
	require.NotNil(t, got.ThumbnailPath())
	assert.Equal(t, "media/videos/out/playlist.m3u8", *got.OutputPath())
	assert.Equal(t, "media/thumbnails/out.jpg", *got.ThumbnailPath())
	assert.Equal(t, 2, got.Attempts())
	assert.Empty(t, got.ErrorMessage())

	assert.Equal(t, []time.Duration{60 * time.Second}, f.queue.Delays())
	frames, segments := encoder.Calls()
	assert.Equal(t, 2, frames)
	assert.Equal(t, 1, segments)

	ctx := context.Background()
	for _, rel := range []string{"media/videos/out/playlist.m3u8", "media/videos/out/playlist0.ts", "media/thumbnails/out.jpg"} {
		exists, err := f.store.Exists(ctx, rel)
		require.NoError(t, err)
		assert.True(t, exists, rel)
	}
	exists, err := f.store.Exists(ctx, "tmp/uploads/trip.mp4")
	require.NoError(t, err)
	assert.False(t, exists, "temp source removed after success")

	require.Eventually(t, func() bool { return f.worker.GetStats().SuccessfulTasks == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(1), f.worker.GetStats().RetriedTasks)
}
