package persistence

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/database/po"
)

func newSQLiteRepo(t *testing.T) repo.MediaAssetRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "media.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&po.MediaAsset{}))
	return NewMediaAssetRepository(db)
}

func TestCreateAndGetMedia(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()

	asset := entity.NewMediaAssetEntity("clip", vo.MediaKindVideo, "tmp/uploads/a.mp4")
	require.NoError(t, r.CreateMedia(ctx, asset))
	assert.NotZero(t, asset.ID())

	got, err := r.GetMedia(ctx, asset.MediaUUID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "clip", got.Title())
	assert.Equal(t, vo.MediaKindVideo, got.Kind())
	assert.Equal(t, vo.MediaStatusProcessing, got.Status())
	assert.Nil(t, got.OutputPath())

	missing, err := r.GetMedia(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateMediaStatusIsConditional(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()

	asset := entity.NewMediaAssetEntity("clip", vo.MediaKindVideo, "tmp/uploads/a.mp4")
	require.NoError(t, r.CreateMedia(ctx, asset))

	winner, err := r.GetMedia(ctx, asset.MediaUUID())
	require.NoError(t, err)
	stale, err := r.GetMedia(ctx, asset.MediaUUID())
	require.NoError(t, err)

	require.NoError(t, winner.Succeed("media/videos/x/playlist.m3u8", "media/thumbnails/x.jpg"))
	require.NoError(t, r.UpdateMediaStatus(ctx, winner, vo.MediaStatusProcessing))

	require.NoError(t, stale.Fail("late failure"))
	err = r.UpdateMediaStatus(ctx, stale, vo.MediaStatusProcessing)
	assert.ErrorIs(t, err, repo.ErrStatusConflict)

	got, err := r.GetMedia(ctx, asset.MediaUUID())
	require.NoError(t, err)
	assert.Equal(t, vo.MediaStatusSuccess, got.Status())
	require.NotNil(t, got.OutputPath())
	assert.Equal(t, "media/videos/x/playlist.m3u8", *got.OutputPath())
	assert.Equal(t, "media/thumbnails/x.jpg", *got.ThumbnailPath())
	assert.Empty(t, got.ErrorMessage())
}

func TestFailedStatusPersistsNullOutputs(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()

	asset := entity.NewMediaAssetEntity("clip", vo.MediaKindVideo, "tmp/uploads/a.mp4")
	require.NoError(t, r.CreateMedia(ctx, asset))
	require.NoError(t, r.TouchAttempt(ctx, asset.MediaUUID(), 3))

	got, err := r.GetMedia(ctx, asset.MediaUUID())
	require.NoError(t, err)
	assert.Equal(t, 3, got.Attempts())

	require.NoError(t, got.Fail("encoding_failed"))
	require.NoError(t, r.UpdateMediaStatus(ctx, got, vo.MediaStatusProcessing))

	// 已结束的记录不再记录次数
	require.NoError(t, r.TouchAttempt(ctx, asset.MediaUUID(), 5))

	final, err := r.GetMedia(ctx, asset.MediaUUID())
	require.NoError(t, err)
	assert.Equal(t, vo.MediaStatusFailed, final.Status())
	assert.Nil(t, final.OutputPath())
	assert.Nil(t, final.ThumbnailPath())
	assert.Equal(t, 3, final.Attempts())
	assert.Equal(t, "encoding_failed", final.ErrorMessage())
}

func TestTouchAttemptNeverDecreases(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()

	asset := entity.NewMediaAssetEntity("clip", vo.MediaKindVideo, "tmp/uploads/a.mp4")
	require.NoError(t, r.CreateMedia(ctx, asset))
	require.NoError(t, r.TouchAttempt(ctx, asset.MediaUUID(), 2))
	require.NoError(t, r.TouchAttempt(ctx, asset.MediaUUID(), 1))

	got, err := r.GetMedia(ctx, asset.MediaUUID())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts())
}

func TestListProcessingPagesStaleVideos(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()

	var pending []string
	for i := 0; i < 3; i++ {
		asset := entity.NewMediaAssetEntity("clip", vo.MediaKindVideo, "tmp/uploads/a.mp4")
		require.NoError(t, r.CreateMedia(ctx, asset))
		pending = append(pending, asset.MediaUUID())
	}
	failed := entity.NewMediaAssetEntity("clip", vo.MediaKindVideo, "tmp/uploads/b.mp4")
	require.NoError(t, failed.Fail("encoding_failed"))
	require.NoError(t, r.CreateMedia(ctx, failed))
	image, err := entity.NewStoredImageEntity("cover", "media/images/c.png")
	require.NoError(t, err)
	require.NoError(t, r.CreateMedia(ctx, image))

	before := time.Now().Add(time.Minute)
	var got []string
	var afterID uint64
	for {
		page, err := r.ListProcessing(ctx, before, afterID, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, a := range page {
			assert.Equal(t, vo.MediaStatusProcessing, a.Status())
			got = append(got, a.MediaUUID())
			afterID = a.ID()
		}
	}
	assert.Equal(t, pending, got)

	none, err := r.ListProcessing(ctx, time.Now().Add(-time.Hour), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMySQLConditionalUpdateStatement(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	r := NewMediaAssetRepository(db)

	asset := entity.NewMediaAssetEntity("clip", vo.MediaKindVideo, "tmp/uploads/a.mp4")
	require.NoError(t, asset.Succeed("media/videos/x/playlist.m3u8", "media/thumbnails/x.jpg"))

	update := regexp.QuoteMeta("UPDATE `media_assets` SET") + ".*" + regexp.QuoteMeta("WHERE media_uuid = ? AND status = ?")

	mock.ExpectBegin()
	mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, r.UpdateMediaStatus(context.Background(), asset, vo.MediaStatusProcessing))

	mock.ExpectBegin()
	mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	err = r.UpdateMediaStatus(context.Background(), asset, vo.MediaStatusProcessing)
	assert.ErrorIs(t, err, repo.ErrStatusConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}
