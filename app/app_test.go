package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"media-service/pkg/config"
)

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("CONFIG_ENV", "")
	assert.Equal(t, "configs/config.dev.yaml", resolveConfigPath())

	t.Setenv("CONFIG_ENV", "prod")
	assert.Equal(t, "configs/config_prod.yaml", resolveConfigPath())

	t.Setenv("CONFIG_ENV", "staging")
	assert.Equal(t, "configs/config.staging.yaml", resolveConfigPath())

	t.Setenv("CONFIG_PATH", "/etc/media/config.yaml")
	assert.Equal(t, "/etc/media/config.yaml", resolveConfigPath())
}

func TestAdvertiseHost(t *testing.T) {
	cfg := config.Default()
	cfg.ServiceRegistry.RegisterHost = "10.0.0.5"
	assert.Equal(t, "10.0.0.5", advertiseHost(cfg))

	cfg.ServiceRegistry.RegisterHost = ""
	cfg.Server.Host = "192.168.1.2"
	assert.Equal(t, "192.168.1.2", advertiseHost(cfg))
}

func TestRegisterServiceDisabled(t *testing.T) {
	cfg := config.Default()
	assert.Nil(t, registerService(cfg, "127.0.0.1:8083", ""))
}

func TestStandaloneWorkerNeedsSharedQueue(t *testing.T) {
	cfg := config.Default()
	assert.Error(t, checkStandaloneWorker(cfg))

	cfg.Worker.QueueDriver = config.QueueDriverRedis
	assert.NoError(t, checkStandaloneWorker(cfg))
}
