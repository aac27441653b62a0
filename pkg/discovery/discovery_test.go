package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	inst := &ServiceInstance{Name: "order-service", Host: "10.0.0.5", Port: 8080}
	assert.Equal(t, "10.0.0.5:8080", inst.Addr())
	assert.Equal(t, "/services/order-service/10.0.0.5:8080", Key("/services/", inst))
}
