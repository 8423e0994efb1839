package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"media-service/ddd/infrastructure/database/po"
	"media-service/pkg/assert"
	"media-service/pkg/config"
	"media-service/pkg/logger"
	"media-service/pkg/manager"
)

var (
	mysqlResourceOnce      sync.Once
	singletonMysqlResource *MysqlResource
)

// MysqlResource 数据库资源，database.driver 为 sqlite 时使用本地文件库
type MysqlResource struct {
	mainDB *gorm.DB
}

// DefaultMysqlResource 获取数据库资源单例
func DefaultMysqlResource() *MysqlResource {
	assert.NotCircular()
	mysqlResourceOnce.Do(func() {
		singletonMysqlResource = &MysqlResource{}
	})
	assert.NotNil(singletonMysqlResource)
	return singletonMysqlResource
}

// MustOpen 初始化数据库连接
func (r *MysqlResource) MustOpen() {
	if r.mainDB != nil {
		return
	}
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before MysqlResource")
	}

	db, err := OpenDatabase(cfg.Database)
	if err != nil {
		panic(fmt.Sprintf("failed to open database: %v", err))
	}
	r.mainDB = db

	logger.Info("Database resource initialized", map[string]interface{}{
		"driver": cfg.Database.Driver,
	})
}

// OpenDatabase 按配置打开数据库并设置连接池
func OpenDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DatabaseDriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.SQLitePath)
	case config.DatabaseDriverMySQL, "":
		dialector = mysql.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.Driver == config.DatabaseDriverSQLite {
		// sqlite 单写
		sqlDB.SetMaxOpenConns(1)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&po.MediaAsset{}); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return db, nil
}

// MainDB 获取主库连接
func (r *MysqlResource) MainDB() *gorm.DB {
	return r.mainDB
}

// UseDB 替换主库连接，测试与独立进程使用
func (r *MysqlResource) UseDB(db *gorm.DB) {
	r.mainDB = db
}

// Close 释放资源
func (r *MysqlResource) Close() {
	if r.mainDB == nil {
		return
	}
	if sqlDB, err := r.mainDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	r.mainDB = nil
}

// MySqlResourcePlugin 数据库资源插件
type MySqlResourcePlugin struct{}

func (p *MySqlResourcePlugin) Name() string {
	return "mysqlResource"
}

func (p *MySqlResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultMysqlResource()
}
