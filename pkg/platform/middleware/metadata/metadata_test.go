package metadata

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPFromRequest(t *testing.T) {
	t.Run("first forwarded address wins", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")
		assert.Equal(t, "10.0.0.1", ClientIPFromRequest(r))
	})

	t.Run("real ip header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Real-IP", " 10.0.0.2 ")
		assert.Equal(t, "10.0.0.2", ClientIPFromRequest(r))
	})

	t.Run("remote addr with ipv6", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "[::1]:4321"
		assert.Equal(t, "::1", ClientIPFromRequest(r))
	})
}
