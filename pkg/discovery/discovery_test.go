package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceKey(t *testing.T) {
	in := &ServiceInstance{Name: "storefront-http", Host: "10.0.0.7", Port: 8080}
	assert.Equal(t, "/services/storefront-http/10.0.0.7:8080", instanceKey("/services/", in))
}

func TestParseInstance(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		want    *ServiceInstance
		wantErr bool
	}{
		{"ipv4", "10.0.0.7:50051", &ServiceInstance{Name: "svc", Host: "10.0.0.7", Port: 50051}, false},
		{"ipv6", "[::1]:8080", &ServiceInstance{Name: "svc", Host: "::1", Port: 8080}, false},
		{"missing port", "10.0.0.7", nil, true},
		{"bad port", "10.0.0.7:http", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseInstance("svc", tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.addr, got.Addr())
		})
	}
}
