package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mailplatform/backend/internal/config"
	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/monitoring"
	"mailplatform/backend/internal/storage"
)

// 迁移阶段
const (
	PhaseAddresses = "addresses"
	PhaseUsers     = "users"
	PhaseDKIM      = "dkim"
	PhaseAliases   = "aliases"
)

// PhaseFailure 某一阶段的失败，Count 为失败的条目数
type PhaseFailure struct {
	Phase string `json:"phase"`
	Error string `json:"error"`
	Count int    `json:"count"`
}

// RenameResult 各集合的修改数量。迁移不是原子的，部分完成通过计数与 Failures 体现。
type RenameResult struct {
	OldDomain         string         `json:"oldDomain"`
	NewDomain         string         `json:"newDomain"`
	ModifiedAddresses int64          `json:"modifiedAddresses"`
	ModifiedUsers     int64          `json:"modifiedUsers"`
	ModifiedDKIM      int64          `json:"modifiedDkim"`
	ModifiedAliases   int64          `json:"modifiedAliases"`
	Failures          []PhaseFailure `json:"failures,omitempty"`
}

// DomainRenameMigrator 把一个域名下的地址、用户主地址、DKIM 记录与别名目标迁移到新域名
type DomainRenameMigrator struct {
	store     storage.Store
	batchSize int
	log       *zap.Logger
	metrics   *monitoring.Metrics
}

// NewDomainRenameMigrator 创建域名迁移器
func NewDomainRenameMigrator(store storage.Store, cfg config.DirectoryConfig, log *zap.Logger) *DomainRenameMigrator {
	return &DomainRenameMigrator{
		store:     store,
		batchSize: cfg.RenameBatchSize,
		log:       orNop(log),
	}
}

// SetMetrics 设置监控指标
func (m *DomainRenameMigrator) SetMetrics(metrics *monitoring.Metrics) {
	m.metrics = metrics
}

// RenameDomain 执行迁移。
// 先读出全部待改地址，读取失败时不做任何写入；之后各阶段互不影响，单项失败不中断其它项。
// 迁移期间并发写入的地址可能被漏掉。
func (m *DomainRenameMigrator) RenameDomain(ctx context.Context, caller domain.Caller, oldDomain, newDomain string) (*RenameResult, error) {
	if err := caller.Authorize(); err != nil {
		return nil, err
	}

	oldDomain = domain.NormalizeDomain(oldDomain)
	newDomain = domain.NormalizeDomain(newDomain)
	if err := domain.ValidateDomainName(oldDomain); err != nil {
		return nil, domain.ErrInvalidDomain.WithMessage("invalid old domain %q", oldDomain)
	}
	if err := domain.ValidateDomainName(newDomain); err != nil {
		return nil, domain.ErrInvalidDomain.WithMessage("invalid new domain %q", newDomain)
	}
	if oldDomain == newDomain {
		return nil, domain.ErrSameDomain
	}

	start := time.Now()
	log := m.log.With(
		zap.String("caller", caller.ID),
		zap.String("old_domain", oldDomain),
		zap.String("new_domain", newDomain),
	)

	var (
		addressUpdates []storage.AddressUpdate
		userUpdates    []storage.UserAddressUpdate
	)
	err := m.store.StreamAddressesByDomain(ctx, oldDomain, m.batchSize, func(batch []domain.Address) error {
		for _, a := range batch {
			address := renameDomainPart(a.Address, newDomain)
			addressUpdates = append(addressUpdates, storage.AddressUpdate{
				ID:       a.ID,
				Address:  address,
				Addrview: renameDomainPart(a.Addrview, newDomain),
			})
			if a.UserID != nil {
				userUpdates = append(userUpdates, storage.UserAddressUpdate{
					UserID:     *a.UserID,
					OldAddress: a.Address,
					NewAddress: address,
				})
			}
		}
		return nil
	})
	if err != nil {
		log.Error("读取待迁移地址失败", zap.Error(err))
		return nil, domain.ErrStore.Wrap(err)
	}

	result := &RenameResult{OldDomain: oldDomain, NewDomain: newDomain}

	if len(addressUpdates) > 0 {
		bulk := m.store.BulkUpdateAddresses(ctx, addressUpdates)
		result.ModifiedAddresses = bulk.Modified
		result.addBulkFailure(log, PhaseAddresses, bulk)
	}
	if len(userUpdates) > 0 {
		bulk := m.store.BulkUpdateUserAddresses(ctx, userUpdates)
		result.ModifiedUsers = bulk.Modified
		result.addBulkFailure(log, PhaseUsers, bulk)
	}

	if n, err := m.store.RenameDKIMDomain(ctx, oldDomain, newDomain); err != nil {
		result.addPhaseFailure(log, PhaseDKIM, err)
	} else {
		result.ModifiedDKIM = n
	}

	if n, err := m.store.RenameDomainAliasTarget(ctx, oldDomain, newDomain); err != nil {
		result.addPhaseFailure(log, PhaseAliases, err)
	} else {
		result.ModifiedAliases = n
	}

	failed := make([]string, 0, len(result.Failures))
	for _, f := range result.Failures {
		failed = append(failed, f.Phase)
	}
	m.metrics.RecordRename(map[string]int64{
		PhaseAddresses: result.ModifiedAddresses,
		PhaseUsers:     result.ModifiedUsers,
		PhaseDKIM:      result.ModifiedDKIM,
		PhaseAliases:   result.ModifiedAliases,
	}, failed, time.Since(start))

	log.Info("域名迁移完成",
		zap.Int64("modified_addresses", result.ModifiedAddresses),
		zap.Int64("modified_users", result.ModifiedUsers),
		zap.Int64("modified_dkim", result.ModifiedDKIM),
		zap.Int64("modified_aliases", result.ModifiedAliases),
		zap.Int("failed_phases", len(result.Failures)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (r *RenameResult) addBulkFailure(log *zap.Logger, phase string, bulk storage.BulkResult) {
	if len(bulk.Errors) == 0 {
		return
	}
	first := bulk.Errors[0].Err
	log.Error("批量更新部分失败",
		zap.String("phase", phase),
		zap.Int("failed", len(bulk.Errors)),
		zap.Int64("modified", bulk.Modified),
		zap.Error(first),
	)
	r.Failures = append(r.Failures, PhaseFailure{Phase: phase, Error: first.Error(), Count: len(bulk.Errors)})
}

func (r *RenameResult) addPhaseFailure(log *zap.Logger, phase string, err error) {
	log.Error("迁移阶段失败", zap.String("phase", phase), zap.Error(err))
	r.Failures = append(r.Failures, PhaseFailure{Phase: phase, Error: err.Error()})
}

// renameDomainPart 替换最后一个 @ 之后的域名
func renameDomainPart(address, newDomain string) string {
	local, _, ok := domain.SplitAddress(address)
	if !ok {
		return address
	}
	return local + "@" + newDomain
}
