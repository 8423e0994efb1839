package manager

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"media-service/pkg/config"
	"media-service/pkg/logger"
)

// Resource 外部资源（数据库、缓存、对象存储等），进程内单例
type Resource interface {
	MustOpen()
	Close()
}

// ResourcePlugin 资源插件，在 init 中注册
type ResourcePlugin interface {
	Name() string
	MustCreateResource() Resource
}

// Component 后台组件（Worker、消费者等）
type Component interface {
	Start() error
	Stop() error
	GetName() string
}

// ComponentPlugin 组件插件，依赖在启动阶段注入
type ComponentPlugin interface {
	Name() string
	MustCreateComponent(deps *Dependencies) Component
}

// Controller HTTP控制器
type Controller interface {
	RegisterRoutes(engine *gin.Engine)
}

// ControllerPlugin 控制器插件
type ControllerPlugin interface {
	Name() string
	MustCreateController() Controller
}

// Dependencies 依赖注入容器
type Dependencies struct {
	DB              *gorm.DB
	Config          *config.Config
	MediaAppService interface{}
}

type registry struct {
	mu                sync.Mutex
	resourcePlugins   []ResourcePlugin
	componentPlugins  []ComponentPlugin
	controllerPlugins []ControllerPlugin
	resources         []Resource
	components        []Component
	names             map[string]struct{}
}

var defaultRegistry = &registry{names: make(map[string]struct{})}

func (r *registry) claim(kind, name string) {
	key := kind + "/" + name
	if _, ok := r.names[key]; ok {
		panic(fmt.Sprintf("duplicate %s plugin %q", kind, name))
	}
	r.names[key] = struct{}{}
}

// RegisterResourcePlugin 注册资源插件
func RegisterResourcePlugin(p ResourcePlugin) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.claim("resource", p.Name())
	defaultRegistry.resourcePlugins = append(defaultRegistry.resourcePlugins, p)
}

// RegisterComponentPlugin 注册组件插件
func RegisterComponentPlugin(p ComponentPlugin) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.claim("component", p.Name())
	defaultRegistry.componentPlugins = append(defaultRegistry.componentPlugins, p)
}

// RegisterControllerPlugin 注册控制器插件
func RegisterControllerPlugin(p ControllerPlugin) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.claim("controller", p.Name())
	defaultRegistry.controllerPlugins = append(defaultRegistry.controllerPlugins, p)
}

// MustInitResources 按注册顺序打开全部资源
func MustInitResources() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for _, p := range defaultRegistry.resourcePlugins {
		res := p.MustCreateResource()
		res.MustOpen()
		defaultRegistry.resources = append(defaultRegistry.resources, res)
		logger.Infof("Resource opened name=%s", p.Name())
	}
}

// CloseResources 逆序关闭资源
func CloseResources() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for i := len(defaultRegistry.resources) - 1; i >= 0; i-- {
		defaultRegistry.resources[i].Close()
	}
	defaultRegistry.resources = nil
}

// MustInitComponents 创建并启动全部组件
func MustInitComponents(deps *Dependencies) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for _, p := range defaultRegistry.componentPlugins {
		c := p.MustCreateComponent(deps)
		if c == nil {
			continue
		}
		if err := c.Start(); err != nil {
			panic(fmt.Sprintf("start component %s: %v", p.Name(), err))
		}
		defaultRegistry.components = append(defaultRegistry.components, c)
		logger.Infof("Component started name=%s", c.GetName())
	}
}

// RegisterAllRoutes 将全部控制器挂载到 gin 引擎
func RegisterAllRoutes(engine *gin.Engine) {
	defaultRegistry.mu.Lock()
	plugins := append([]ControllerPlugin(nil), defaultRegistry.controllerPlugins...)
	defaultRegistry.mu.Unlock()
	for _, p := range plugins {
		p.MustCreateController().RegisterRoutes(engine)
		logger.Debug("Controller routes registered", map[string]interface{}{"controller": p.Name()})
	}
}

// Shutdown 逆序停止组件
func Shutdown() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for i := len(defaultRegistry.components) - 1; i >= 0; i-- {
		c := defaultRegistry.components[i]
		if err := c.Stop(); err != nil {
			logger.Warnf("Component stop failed name=%s error=%v", c.GetName(), err)
		}
	}
	defaultRegistry.components = nil
}

// reset 清空注册表，仅供测试
func reset() {
	defaultRegistry = &registry{names: make(map[string]struct{})}
}
