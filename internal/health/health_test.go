package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthChecker(t *testing.T) {
	ok := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("down") })

	serve := func(h http.HandlerFunc) int {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec.Code
	}

	t.Run("存储可用", func(t *testing.T) {
		hc := NewHealthChecker(ok, nil, nil)
		assert.Equal(t, http.StatusOK, serve(hc.LiveHandler()))
		assert.Equal(t, http.StatusOK, serve(hc.ReadyHandler()))
	})

	t.Run("存储不可用时未就绪", func(t *testing.T) {
		hc := NewHealthChecker(down, nil, nil)
		assert.Equal(t, http.StatusOK, serve(hc.LiveHandler()))
		assert.Equal(t, http.StatusServiceUnavailable, serve(hc.ReadyHandler()))
	})

	t.Run("计数存储不可用不影响就绪", func(t *testing.T) {
		hc := NewHealthChecker(ok, down, nil)
		assert.Equal(t, http.StatusOK, serve(hc.ReadyHandler()))
	})
}
