package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"media-service/pkg/config"
)

func TestInstanceKey(t *testing.T) {
	assert.Equal(t, "/services/media-service/node-1", InstanceKey("media-service", "node-1"))
}

func TestNewServiceRegistryRequiresEndpoints(t *testing.T) {
	_, err := NewServiceRegistry(config.ServiceRegistryConfig{ServiceName: "media-service"}, Instance{ServiceID: "a"})
	assert.Error(t, err)
}
