package storage

import (
	"sync"

	"media-service/pkg/assert"
	"media-service/pkg/config"
)

var (
	localStorageOnce      sync.Once
	singletonLocalStorage *LocalStorage
)

// DefaultLocalStorage 按全局配置创建本地存储单例
func DefaultLocalStorage() *LocalStorage {
	assert.NotCircular()
	localStorageOnce.Do(func() {
		cfg := config.GetGlobalConfig()
		if cfg == nil {
			cfg = config.Default()
		}
		s, err := NewLocalStorage(cfg.Storage.RootDir, cfg.Public.StorageBase)
		if err != nil {
			panic("failed to init local storage: " + err.Error())
		}
		singletonLocalStorage = s
	})
	assert.NotNil(singletonLocalStorage)
	return singletonLocalStorage
}
