package http

import (
	"sync"

	"github.com/gin-gonic/gin"

	"media-service/ddd/infrastructure/storage"
	"media-service/pkg/assert"
	"media-service/pkg/manager"
)

var (
	storageControllerOnce      sync.Once
	singletonStorageController manager.Controller
)

// StorageControllerPlugin 对外提供本地存储中的媒体文件
type StorageControllerPlugin struct {
}

func (p *StorageControllerPlugin) Name() string {
	return "storageControllerPlugin"
}

func (p *StorageControllerPlugin) MustCreateController() manager.Controller {
	assert.NotCircular()
	storageControllerOnce.Do(func() {
		singletonStorageController = NewStorageController(storage.DefaultLocalStorage().RootDir())
	})
	assert.NotNil(singletonStorageController)
	return singletonStorageController
}

type storageController struct {
	rootDir string
}

// NewStorageController 以 /storage 前缀暴露 rootDir
func NewStorageController(rootDir string) manager.Controller {
	return &storageController{rootDir: rootDir}
}

func (s *storageController) RegisterRoutes(engine *gin.Engine) {
	engine.Static(storage.PublicPathPrefix, s.rootDir)
}
