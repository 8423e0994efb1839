package vo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaStatusTransitions(t *testing.T) {
	assert.True(t, MediaStatusProcessing.CanTransitionTo(MediaStatusSuccess))
	assert.True(t, MediaStatusProcessing.CanTransitionTo(MediaStatusFailed))
	assert.False(t, MediaStatusProcessing.CanTransitionTo(MediaStatusProcessing))

	for _, final := range []MediaStatus{MediaStatusSuccess, MediaStatusFailed} {
		assert.True(t, final.IsFinalStatus())
		for _, target := range []MediaStatus{MediaStatusProcessing, MediaStatusSuccess, MediaStatusFailed} {
			assert.False(t, final.CanTransitionTo(target), "%s -> %s", final, target)
		}
	}

	_, err := NewMediaStatusFromString("done")
	assert.Error(t, err)
	st, err := NewMediaStatusFromString("failed")
	require.NoError(t, err)
	assert.Equal(t, MediaStatusFailed, st)
}

func TestParseMediaKind(t *testing.T) {
	k, err := ParseMediaKind(" Video ")
	require.NoError(t, err)
	assert.Equal(t, MediaKindVideo, k)

	_, err = ParseMediaKind("audio")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, FieldKind, ve.Field)
}

func TestUploadPolicyValidate(t *testing.T) {
	p := DefaultUploadPolicy()
	const mb = 1024 * 1024

	cases := []struct {
		name    string
		kind    MediaKind
		file    string
		size    int64
		wantExt string
		field   string
	}{
		{name: "png image", kind: MediaKindImage, file: "photo.PNG", size: 2 * mb, wantExt: "png"},
		{name: "jpeg image", kind: MediaKindImage, file: "a.b.jpeg", size: 1, wantExt: "jpeg"},
		{name: "mkv video", kind: MediaKindVideo, file: "clip.mkv", size: 20 * mb, wantExt: "mkv"},
		{name: "oversized video", kind: MediaKindVideo, file: "clip.mp4", size: 25 * mb, field: FieldSize},
		{name: "empty file", kind: MediaKindVideo, file: "clip.mp4", size: 0, field: FieldSize},
		{name: "video ext for image", kind: MediaKindImage, file: "clip.mp4", size: mb, field: FieldName},
		{name: "image ext for video", kind: MediaKindVideo, file: "photo.png", size: mb, field: FieldName},
		{name: "no extension", kind: MediaKindVideo, file: "clip", size: mb, field: FieldName},
		{name: "unknown kind", kind: MediaKind("doc"), file: "a.pdf", size: mb, field: FieldKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ext, err := p.Validate(tc.kind, tc.file, tc.size)
			if tc.field == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.wantExt, ext)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestCustomUploadPolicy(t *testing.T) {
	p := NewUploadPolicy(10, []string{".GIF"}, []string{"webm"})
	_, err := p.Validate(MediaKindImage, "x.gif", 10)
	assert.NoError(t, err)
	_, err = p.Validate(MediaKindImage, "x.gif", 11)
	assert.Error(t, err)
	_, err = p.Validate(MediaKindVideo, "x.mp4", 5)
	assert.Error(t, err)
}

func TestRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 60*time.Second, p.Backoff)
	assert.True(t, p.ShouldRetry(1))
	assert.True(t, p.ShouldRetry(2))
	assert.False(t, p.ShouldRetry(3))

	assert.Equal(t, DefaultRetryPolicy(), NewRetryPolicy(0, -time.Second))
	assert.Equal(t, RetryPolicy{MaxAttempts: 5, Backoff: time.Second}, NewRetryPolicy(5, time.Second))
}

func TestHLSConfig(t *testing.T) {
	cfg := DefaultHLSConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.SegmentDuration)
	assert.Equal(t, 0, cfg.ListSize)
	assert.InDelta(t, 0.1, cfg.ThumbnailSeconds(), 1e-9)
	assert.Equal(t, "media/videos/abc/playlist.m3u8", cfg.PlaylistPath("media/videos/abc"))

	_, err := NewHLSConfig(0, "index.txt", 0)
	assert.Error(t, err)
	cfg.SegmentDuration = 61
	assert.Error(t, cfg.Validate())
}

func TestJobErrorClassification(t *testing.T) {
	cause := errors.New("exit status 1")
	err := fmt.Errorf("attempt 2: %w", NewJobError(JobErrorEncodingFailed, "transcode", cause))

	assert.ErrorIs(t, err, ErrEncodingFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrEncoderUnavailable)
	assert.Equal(t, JobErrorEncodingFailed, KindOf(err))
	assert.Equal(t, JobErrorKind(""), KindOf(cause))

	assert.True(t, NewJobError(JobErrorEncoderUnavailable, "lookup", nil).IsRetryable())
	assert.True(t, NewJobError(JobErrorStorageWrite, "mkdir", nil).IsRetryable())
	assert.False(t, NewJobError(JobErrorSourceMissing, "stat", nil).IsRetryable())
	assert.True(t, NewJobError(JobErrorPersistence, "save success", nil).IsRetryable())
	assert.False(t, NewJobError(JobErrorInvalidTask, "decode task", nil).IsRetryable())
}

func TestFailedResultClassification(t *testing.T) {
	assert.Equal(t, JobRetryable, Failed(NewJobError(JobErrorEncodingFailed, "x", nil)).Outcome)
	assert.Equal(t, JobTerminal, Failed(NewJobError(JobErrorAssetMissing, "x", nil)).Outcome)
	assert.Equal(t, JobRetryable, Failed(errors.New("opaque")).Outcome)
	assert.True(t, Succeeded().IsSuccess())
	assert.Equal(t, "discarded", Discarded().Outcome.String())
}
