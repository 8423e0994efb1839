package http

import "media-service/pkg/manager"

func init() {
	// 注册控制器插件
	manager.RegisterControllerPlugin(&MediaControllerPlugin{})
	manager.RegisterControllerPlugin(&StorageControllerPlugin{})
}
