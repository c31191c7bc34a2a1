package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeTags(t *testing.T) {
	t.Run("去重保留首次写法并排序", func(t *testing.T) {
		display, view := CanonicalizeTags([]string{"b", " A ", "a", "", "B", "c"})
		assert.Equal(t, []string{"A", "b", "c"}, display)
		assert.Equal(t, []string{"a", "b", "c"}, view)
	})

	t.Run("大小写重复只保留一个", func(t *testing.T) {
		display, view := CanonicalizeTags([]string{"B", "a", "b"})
		assert.Equal(t, []string{"a", "B"}, display)
		assert.Equal(t, []string{"a", "b"}, view)
	})

	t.Run("区域敏感排序", func(t *testing.T) {
		display, view := CanonicalizeTags([]string{"zeta", "Äpfel", "apple"})
		assert.Equal(t, []string{"Äpfel", "apple", "zeta"}, display)
		assert.Equal(t, []string{"äpfel", "apple", "zeta"}, view)
	})

	t.Run("空输入", func(t *testing.T) {
		display, view := CanonicalizeTags(nil)
		assert.Empty(t, display)
		assert.Empty(t, view)
	})

	t.Run("结果幂等", func(t *testing.T) {
		display, _ := CanonicalizeTags([]string{"Work", "home", "WORK"})
		again, _ := CanonicalizeTags(display)
		assert.Equal(t, display, again)
	})
}
