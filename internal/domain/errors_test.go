package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIdentity(t *testing.T) {
	t.Run("派生错误与哨兵相等", func(t *testing.T) {
		err := ErrInvalidAddress.WithMessage("bad %s", "x")
		assert.ErrorIs(t, err, ErrInvalidAddress)
		assert.Equal(t, "bad x", err.Error())
	})

	t.Run("同错误码的哨兵互不相等", func(t *testing.T) {
		assert.False(t, errors.Is(ErrMainUnset, ErrMainAddressDelete))
		assert.False(t, errors.Is(ErrInvalidAddress, ErrInvalidForwards))
	})

	t.Run("包装后保留类别", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := fmt.Errorf("load: %w", ErrStore.Wrap(cause))
		assert.ErrorIs(t, err, ErrStore)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, KindStore, KindOf(err))
		assert.Equal(t, "StoreError", CodeOf(err))
	})

	t.Run("非业务错误", func(t *testing.T) {
		assert.Equal(t, KindStore, KindOf(errors.New("boom")))
		assert.Equal(t, Kind(""), KindOf(nil))
	})
}

func TestCallerAuthorize(t *testing.T) {
	assert.NoError(t, Caller{ID: "admin", Allowed: true}.Authorize())
	assert.ErrorIs(t, Caller{ID: "guest"}.Authorize(), ErrForbidden)
}
