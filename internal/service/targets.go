package service

import (
	"context"

	"github.com/google/uuid"

	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/storage"
)

// TargetResolver 解析转发目标并反查邮件目标的归属用户
type TargetResolver struct {
	addresses storage.AddressRepository
}

// NewTargetResolver 创建转发目标解析器
func NewTargetResolver(addresses storage.AddressRepository) *TargetResolver {
	return &TargetResolver{addresses: addresses}
}

// Prepare 对原始目标逐个分类、去重并分配 ID，拒绝转发给自己，最后批量反查归属用户。
// selfAddrview 为正在创建或修改的地址的 addrview。
func (r *TargetResolver) Prepare(ctx context.Context, raw []string, selfAddrview string) ([]domain.Target, error) {
	targets := make([]domain.Target, 0, len(raw))
	views := make(map[string]string, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, value := range raw {
		target, err := domain.ClassifyTarget(value)
		if err != nil {
			return nil, err
		}

		target.ID = uuid.NewString()
		key := string(target.Type) + ":" + target.Value
		if target.Type == domain.TargetMail {
			view := domain.CanonicalView(target.Value)
			if view == selfAddrview {
				return nil, domain.ErrSelfForward
			}
			key = string(target.Type) + ":" + view
			views[target.ID] = view
		}

		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		targets = append(targets, target)
	}

	if err := r.resolveOwners(ctx, targets, views); err != nil {
		return nil, err
	}
	return targets, nil
}

// ResolveOwners 批量反查邮件目标的归属用户；找不到的目标保持无归属
func (r *TargetResolver) ResolveOwners(ctx context.Context, targets []domain.Target) error {
	views := make(map[string]string, len(targets))
	for _, t := range targets {
		if t.Type == domain.TargetMail {
			views[t.ID] = domain.CanonicalView(t.Value)
		}
	}
	return r.resolveOwners(ctx, targets, views)
}

// resolveOwners views 以目标 ID 为键，只在本次调用内有效
func (r *TargetResolver) resolveOwners(ctx context.Context, targets []domain.Target, views map[string]string) error {
	if len(views) == 0 {
		return nil
	}

	lookup := make([]string, 0, len(views))
	for _, t := range targets {
		if view, ok := views[t.ID]; ok {
			lookup = append(lookup, view)
		}
	}

	found, err := r.addresses.FindAddressesByAddrviews(ctx, lookup)
	if err != nil {
		return storeError(err, nil, nil)
	}

	owners := make(map[string]string, len(found))
	for _, a := range found {
		if a.UserID != nil {
			owners[a.Addrview] = *a.UserID
		}
	}

	for i := range targets {
		view, ok := views[targets[i].ID]
		if !ok {
			continue
		}
		targets[i].User = owners[view]
	}
	return nil
}
