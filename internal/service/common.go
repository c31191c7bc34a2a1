// Package service 实现地址目录的业务操作。
// 每个操作先校验调用方授权，再做输入校验，最后才访问存储。
package service

import (
	"errors"

	"go.uber.org/zap"

	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/storage"
)

// storeError 将存储层错误翻译为业务错误
func storeError(err error, notFound, conflict *domain.Error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case notFound != nil && errors.Is(err, storage.ErrNotFound):
		return notFound
	case conflict != nil && errors.Is(err, storage.ErrDuplicateKey):
		return conflict
	default:
		return domain.ErrStore.Wrap(err)
	}
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// normalizeTags 规范化可选的标签输入，nil 表示不修改
func normalizeTags(tags []string) (display, view []string) {
	if tags == nil {
		return nil, nil
	}
	return domain.CanonicalizeTags(tags)
}

func tagViews(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	_, view := domain.CanonicalizeTags(tags)
	return view
}
