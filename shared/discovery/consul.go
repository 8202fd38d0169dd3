package discovery

import (
	"fmt"
	"time"

	consulapi "github.com/hashicorp/consul/api"
)

// Registration describes one service instance announced to Consul.
type Registration struct {
	ServiceName string
	Host        string
	HTTPPort    int
	GRPCPort    int
	Tags        []string
}

func (r Registration) instanceID() string {
	return fmt.Sprintf("%s-%s-%d", r.ServiceName, r.Host, r.HTTPPort)
}

// agentRegistration builds the Consul payload. Health is checked through
// the gRPC health service registered for ServiceName.
func (r Registration) agentRegistration() *consulapi.AgentServiceRegistration {
	return &consulapi.AgentServiceRegistration{
		ID:      r.instanceID(),
		Name:    r.ServiceName,
		Address: r.Host,
		Port:    r.HTTPPort,
		Tags:    r.Tags,
		Meta: map[string]string{
			"grpc_port": fmt.Sprint(r.GRPCPort),
		},
		Check: &consulapi.AgentServiceCheck{
			GRPC:                           fmt.Sprintf("%s:%d/%s", r.Host, r.GRPCPort, r.ServiceName),
			Interval:                       (10 * time.Second).String(),
			Timeout:                        (3 * time.Second).String(),
			DeregisterCriticalServiceAfter: time.Minute.String(),
		},
	}
}

type ConsulRegistry struct {
	client *consulapi.Client
}

func NewConsulRegistry(address string) (*ConsulRegistry, error) {
	cfg := consulapi.DefaultConfig()
	cfg.Address = address

	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulRegistry{client: client}, nil
}

// Register announces the instance and returns a function that removes it.
func (c *ConsulRegistry) Register(reg Registration) (func() error, error) {
	payload := reg.agentRegistration()
	if err := c.client.Agent().ServiceRegister(payload); err != nil {
		return nil, fmt.Errorf("failed to register %s with consul: %w", reg.ServiceName, err)
	}

	return func() error {
		return c.client.Agent().ServiceDeregister(payload.ID)
	}, nil
}
