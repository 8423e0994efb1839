package config

import "sync/atomic"

var globalConfig atomic.Pointer[Config]

// SetGlobalConfig 设置全局配置，需在资源初始化之前调用
func SetGlobalConfig(cfg *Config) {
	globalConfig.Store(cfg)
}

// GetGlobalConfig 获取全局配置，未设置时返回 nil
func GetGlobalConfig() *Config {
	return globalConfig.Load()
}
