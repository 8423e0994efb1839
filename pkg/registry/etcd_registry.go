package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"media-service/pkg/config"
	"media-service/pkg/logger"
)

// Instance 注册到 etcd 的实例元数据
type Instance struct {
	ServiceID    string            `json:"service_id"`
	HTTPAddr     string            `json:"http_addr"`
	GRPCAddr     string            `json:"grpc_addr,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	RegisteredAt time.Time         `json:"registered_at"`
}

// ServiceRegistry registers services into etcd.
type ServiceRegistry struct {
	client      *clientv3.Client
	serviceName string
	instance    Instance
	ttl         int64
	leaseID     clientv3.LeaseID
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewServiceRegistry creates a new ServiceRegistry instance.
func NewServiceRegistry(cfg config.ServiceRegistryConfig, instance Instance) (*ServiceRegistry, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("service registry endpoints are required")
	}
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	if instance.ServiceID == "" {
		instance.ServiceID = cfg.ServiceID
	}
	ttl := int64(cfg.TTL.Seconds())
	if ttl <= 0 {
		ttl = 30
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ServiceRegistry{
		client:      client,
		serviceName: cfg.ServiceName,
		instance:    instance,
		ttl:         ttl,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Key returns the etcd key for this instance.
func (r *ServiceRegistry) Key() string {
	return InstanceKey(r.serviceName, r.instance.ServiceID)
}

// InstanceKey builds /services/<name>/<id>.
func InstanceKey(serviceName, serviceID string) string {
	return fmt.Sprintf("/services/%s/%s", serviceName, serviceID)
}

// Register registers service instance.
func (r *ServiceRegistry) Register() error {
	leaseResp, err := r.client.Grant(r.ctx, r.ttl)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}
	r.leaseID = leaseResp.ID

	r.instance.RegisteredAt = time.Now()
	value, err := json.Marshal(r.instance)
	if err != nil {
		return fmt.Errorf("failed to encode instance: %w", err)
	}
	if _, err := r.client.Put(r.ctx, r.Key(), string(value), clientv3.WithLease(r.leaseID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, err := r.client.KeepAlive(r.ctx, r.leaseID)
	if err != nil {
		return fmt.Errorf("failed to keep alive lease: %w", err)
	}
	go r.drainKeepAlive(ch)

	logger.Infof("Service registered key=%s http=%s grpc=%s", r.Key(), r.instance.HTTPAddr, r.instance.GRPCAddr)
	return nil
}

func (r *ServiceRegistry) drainKeepAlive(ch <-chan *clientv3.LeaseKeepAliveResponse) {
	for {
		select {
		case <-r.ctx.Done():
			return
		case ka, ok := <-ch:
			if !ok || ka == nil {
				logger.Warnf("Keep alive channel closed key=%s", r.Key())
				return
			}
		}
	}
}

// Deregister removes service registration.
func (r *ServiceRegistry) Deregister() error {
	r.cancel()
	if r.leaseID != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if _, err := r.client.Revoke(ctx, r.leaseID); err != nil {
			logger.Warnf("Failed to revoke lease key=%s error=%v", r.Key(), err)
		}
	}
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close etcd client: %w", err)
	}
	logger.Infof("Service deregistered key=%s", r.Key())
	return nil
}
