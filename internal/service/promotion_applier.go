package service

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/promoengine/internal/constants"
	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/metrics"
	"github.com/dujiao-next/promoengine/internal/models"
	"github.com/dujiao-next/promoengine/internal/repository"

	"gorm.io/gorm"
)

const defaultMaxCodesPerRequest = 10

// RedeemableRef 可核销对象引用
type RedeemableRef struct {
	Type string
	ID   uint
}

// CartRef 购物车引用
func CartRef(id uint) RedeemableRef {
	return RedeemableRef{Type: constants.RedeemableTypeCart, ID: id}
}

// OrderRef 订单引用
func OrderRef(id uint) RedeemableRef {
	return RedeemableRef{Type: constants.RedeemableTypeOrder, ID: id}
}

// PromotionApplier 优惠码挂载服务
type PromotionApplier struct {
	registry      *PromotionRegistry
	promotionRepo repository.PromotionRepository
	usageRepo     repository.PromotionUsageRepository
	linkRepo      repository.RedeemablePromotionRepository
	cartRepo      repository.CartRepository
	orderRepo     repository.OrderRepository
	totals        *RedeemableTotals
	locker        RedeemableLocker
	bundles       *BundleAttacher
	maxCodes      int
	now           func() time.Time
}

// NewPromotionApplier 创建优惠码挂载服务
func NewPromotionApplier(
	registry *PromotionRegistry,
	promotionRepo repository.PromotionRepository,
	usageRepo repository.PromotionUsageRepository,
	linkRepo repository.RedeemablePromotionRepository,
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	totals *RedeemableTotals,
	locker RedeemableLocker,
	maxCodes int,
) *PromotionApplier {
	if maxCodes <= 0 {
		maxCodes = defaultMaxCodesPerRequest
	}
	applier := &PromotionApplier{
		registry:      registry,
		promotionRepo: promotionRepo,
		usageRepo:     usageRepo,
		linkRepo:      linkRepo,
		cartRepo:      cartRepo,
		orderRepo:     orderRepo,
		totals:        totals,
		locker:        locker,
		maxCodes:      maxCodes,
		now:           time.Now,
	}
	applier.bundles = &BundleAttacher{registry: registry, applier: applier}
	return applier
}

// Bundles 组合优惠自动挂载器
func (a *PromotionApplier) Bundles() *BundleAttacher {
	return a.bundles
}

// Totals 金额重算器
func (a *PromotionApplier) Totals() *RedeemableTotals {
	return a.totals
}

// Apply 挂载单个优惠码
func (a *PromotionApplier) Apply(ctx context.Context, ref RedeemableRef, code string) (models.Redeemable, error) {
	var result models.Redeemable
	err := a.withRedeemable(ctx, ref, func(tx *gorm.DB, redeemable models.Redeemable, now time.Time) error {
		if err := a.applyCode(tx, redeemable, code, now); err != nil {
			return err
		}
		if _, err := a.totals.Recompute(tx, redeemable, now); err != nil {
			return err
		}
		result = redeemable
		return nil
	})
	a.observe("apply", err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyBatch 整批挂载优惠码，任一失败则整体回滚
// 先解除全部已挂载优惠，再依次挂载；组合优惠随后按当前行项目重新匹配。
func (a *PromotionApplier) ApplyBatch(ctx context.Context, ref RedeemableRef, codes []string) (models.Redeemable, []CodeFailure, error) {
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		if trimmed := models.NormalizePromotionCode(code); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	if len(normalized) == 0 {
		return nil, nil, ErrPromotionCodesEmpty
	}
	if len(normalized) > a.maxCodes {
		return nil, nil, ErrPromotionCodesTooMany
	}

	var (
		result   models.Redeemable
		failures []CodeFailure
	)
	err := a.withRedeemable(ctx, ref, func(tx *gorm.DB, redeemable models.Redeemable, now time.Time) error {
		if err := a.ClearAttachments(tx, ref); err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(normalized))
		for _, code := range normalized {
			var err error
			if _, dup := seen[code]; dup {
				err = newPromotionError(ErrPromotionAlreadyApplied, code)
			} else {
				seen[code] = struct{}{}
				err = a.applyCode(tx, redeemable, code, now)
			}
			if err != nil {
				if errorCode := ErrorCodeOf(err); errorCode != "" {
					failures = []CodeFailure{{Code: code, ErrorCode: errorCode}}
				}
				return err
			}
		}
		if err := a.bundles.attach(ctx, tx, redeemable, now); err != nil {
			return err
		}
		if _, err := a.totals.Recompute(tx, redeemable, now); err != nil {
			return err
		}
		result = redeemable
		return nil
	})
	a.observe("apply_batch", err)
	if err != nil {
		return nil, failures, err
	}
	return result, nil, nil
}

// Detach 解除优惠挂载，不归还使用次数
func (a *PromotionApplier) Detach(ctx context.Context, ref RedeemableRef, promotionID uint) (models.Redeemable, error) {
	var result models.Redeemable
	err := a.withRedeemable(ctx, ref, func(tx *gorm.DB, redeemable models.Redeemable, now time.Time) error {
		removed, err := a.linkRepo.WithTx(tx).Detach(redeemable.RedeemableType(), redeemable.RedeemableID(), promotionID)
		if err != nil {
			return err
		}
		if !removed {
			return newPromotionError(ErrPromotionNotFound, "")
		}
		usageRepo := a.usageRepo.WithTx(tx)
		usage, err := usageRepo.GetByTarget(promotionID, redeemable.RedeemableType(), redeemable.RedeemableID())
		if err != nil {
			return err
		}
		if usage != nil && usage.IsActive {
			if err := usageRepo.SetActive(usage.ID, false); err != nil {
				return err
			}
		}
		if _, err := a.totals.Recompute(tx, redeemable, now); err != nil {
			return err
		}
		result = redeemable
		return nil
	})
	a.observe("detach", err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReleaseUsages 释放对象在指定状态下的台账并归还使用次数
func (a *PromotionApplier) ReleaseUsages(tx *gorm.DB, redeemableType string, redeemableID uint, reason string, states ...string) (int, error) {
	usageRepo := a.usageRepo.WithTx(tx)
	promotionRepo := a.promotionRepo.WithTx(tx)
	usages, err := usageRepo.ListByRedeemable(redeemableType, redeemableID)
	if err != nil {
		return 0, err
	}
	allowed := make(map[string]struct{}, len(states))
	for _, state := range states {
		allowed[state] = struct{}{}
	}
	ids := make([]uint, 0, len(usages))
	for _, usage := range usages {
		if _, ok := allowed[usage.State]; !ok {
			continue
		}
		if err := promotionRepo.ReleaseUsage(usage.PromotionID, 1); err != nil {
			return 0, err
		}
		ids = append(ids, usage.ID)
	}
	if err := usageRepo.MarkReleased(ids, a.now()); err != nil {
		return 0, err
	}
	metrics.UsageReleased(reason, len(ids))
	return len(ids), nil
}

// Locked 加锁并在事务内加载可核销对象（行锁）
func (a *PromotionApplier) Locked(ctx context.Context, ref RedeemableRef, fn func(tx *gorm.DB, redeemable models.Redeemable, now time.Time) error) error {
	release, err := a.locker.Acquire(ctx, ref.Type, ref.ID)
	if err != nil {
		if errors.Is(err, ErrPromotionConcurrencyConflict) {
			return newPromotionError(ErrPromotionConcurrencyConflict, "")
		}
		return err
	}
	defer release()

	return models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		redeemable, err := a.loadForUpdate(tx, ref)
		if err != nil {
			return err
		}
		return fn(tx, redeemable, a.now())
	})
}

// withRedeemable 在 Locked 基础上要求对象仍可调整优惠
func (a *PromotionApplier) withRedeemable(ctx context.Context, ref RedeemableRef, fn func(tx *gorm.DB, redeemable models.Redeemable, now time.Time) error) error {
	return a.Locked(ctx, ref, func(tx *gorm.DB, redeemable models.Redeemable, now time.Time) error {
		if !redeemable.AcceptsPromotions(now) {
			return ErrRedeemableLocked
		}
		return fn(tx, redeemable, now)
	})
}

// TransferAttachments 将挂载关系与台账转移到另一个对象，不重复占用次数
func (a *PromotionApplier) TransferAttachments(tx *gorm.DB, from, to RedeemableRef, state string) error {
	if err := a.linkRepo.WithTx(tx).Transfer(from.Type, from.ID, to.Type, to.ID); err != nil {
		return err
	}
	return a.usageRepo.WithTx(tx).Transfer(from.Type, from.ID, to.Type, to.ID, state)
}

// ClearAttachments 解除对象全部挂载关系
func (a *PromotionApplier) ClearAttachments(tx *gorm.DB, ref RedeemableRef) error {
	if err := a.linkRepo.WithTx(tx).DetachAll(ref.Type, ref.ID); err != nil {
		return err
	}
	return a.usageRepo.WithTx(tx).DeactivateByRedeemable(ref.Type, ref.ID)
}

// AttachedPromotions 获取对象已挂载的优惠
func (a *PromotionApplier) AttachedPromotions(ref RedeemableRef) ([]models.Promotion, error) {
	return a.linkRepo.ListPromotions(ref.Type, ref.ID)
}

func (a *PromotionApplier) loadForUpdate(tx *gorm.DB, ref RedeemableRef) (models.Redeemable, error) {
	switch ref.Type {
	case constants.RedeemableTypeCart:
		cart, err := a.cartRepo.WithTx(tx).GetByIDForUpdate(ref.ID)
		if err != nil {
			return nil, err
		}
		if cart == nil {
			return nil, ErrCartNotFound
		}
		return cart, nil
	case constants.RedeemableTypeOrder:
		order, err := a.orderRepo.WithTx(tx).GetByIDForUpdate(ref.ID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, ErrOrderNotFound
		}
		return order, nil
	default:
		return nil, ErrPromotionInvalid
	}
}

func (a *PromotionApplier) applyCode(tx *gorm.DB, redeemable models.Redeemable, code string, now time.Time) error {
	promotion, err := a.registry.FindByCode(tx, code)
	if err != nil {
		if errors.Is(err, ErrPromotionNotFound) {
			return newPromotionError(ErrPromotionNotFound, models.NormalizePromotionCode(code))
		}
		return err
	}
	return a.attachPromotion(tx, redeemable, promotion, now)
}

// attachPromotion 校验并挂载优惠
// 校验顺序：可用性、组合规则与行项目匹配、重复挂载、使用上限、叠加规则；同一对象再次挂载已占用过次数的优惠不重复计数。
func (a *PromotionApplier) attachPromotion(tx *gorm.DB, redeemable models.Redeemable, promotion *models.Promotion, now time.Time) error {
	code := promotion.Code
	if !IsEligible(promotion, now) {
		return newPromotionError(ErrPromotionExpiredOrInactive, code)
	}
	if promotion.IsBundle() {
		if err := ValidateBundleRules(promotion.BundleRules); err != nil {
			return newPromotionError(ErrInvalidBundleConfiguration, code)
		}
		if !MatchesBundle(promotion, redeemable.LineItems()) {
			return newPromotionError(ErrBundleNotMatched, code)
		}
	}

	usageRepo := a.usageRepo.WithTx(tx)
	redeemableType := redeemable.RedeemableType()
	redeemableID := redeemable.RedeemableID()
	usage, err := usageRepo.GetByTarget(promotion.ID, redeemableType, redeemableID)
	if err != nil {
		return err
	}
	if usage != nil && usage.IsActive {
		return newPromotionError(ErrPromotionAlreadyApplied, code)
	}
	needsConsume := usage == nil || usage.State == constants.PromotionUsageStateReleased
	if needsConsume && IsExhausted(promotion) {
		return newPromotionError(ErrPromotionExhausted, code)
	}

	attached, err := a.linkRepo.WithTx(tx).ListPromotions(redeemableType, redeemableID)
	if err != nil {
		return err
	}
	if err := checkStacking(promotion, attached); err != nil {
		return newPromotionError(err, code)
	}

	state := constants.PromotionUsageStateReserved
	if redeemableType == constants.RedeemableTypeOrder {
		state = constants.PromotionUsageStateRedeemed
	}
	if needsConsume {
		if err := a.consumeUsage(tx, promotion); err != nil {
			return err
		}
	}
	switch {
	case usage == nil:
		if err := usageRepo.Create(&models.PromotionUsage{
			PromotionID:    promotion.ID,
			RedeemableType: redeemableType,
			RedeemableID:   redeemableID,
			UserID:         redeemable.OwnerUserID(),
			IsActive:       true,
			State:          state,
		}); err != nil {
			return err
		}
	case needsConsume:
		if err := usageRepo.Reactivate(usage.ID, state); err != nil {
			return err
		}
	default:
		if err := usageRepo.SetActive(usage.ID, true); err != nil {
			return err
		}
	}

	return a.linkRepo.WithTx(tx).Attach(redeemableType, redeemableID, promotion.ID)
}

// consumeUsage 条件递增使用次数，失败时区分已用尽与并发冲突
func (a *PromotionApplier) consumeUsage(tx *gorm.DB, promotion *models.Promotion) error {
	promotionRepo := a.promotionRepo.WithTx(tx)
	ok, err := promotionRepo.TryConsumeUsage(promotion.ID)
	if err != nil {
		return err
	}
	if ok {
		metrics.UsageConsumed(promotion.DiscountType)
		return nil
	}
	latest, err := promotionRepo.GetByID(promotion.ID)
	if err != nil {
		return err
	}
	if latest == nil || IsExhausted(latest) {
		return newPromotionError(ErrPromotionExhausted, promotion.Code)
	}
	logger.Warnw("promotion_usage_consume_conflict",
		"promotion_id", promotion.ID,
		"usage_count", latest.UsageCount,
	)
	return newPromotionError(ErrPromotionConcurrencyConflict, promotion.Code)
}

func (a *PromotionApplier) observe(operation string, err error) {
	result := "ok"
	if err != nil {
		result = ErrorCodeOf(err)
		if result == "" {
			result = "error"
		}
	}
	metrics.ObservePromotionOperation(operation, result)
}

// checkStacking 叠加规则：不可叠加的优惠只能单独存在
func checkStacking(candidate *models.Promotion, attached []models.Promotion) error {
	if len(attached) == 0 {
		return nil
	}
	if !candidate.Stackable {
		return ErrPromotionStackingConflict
	}
	for _, existing := range attached {
		if !existing.Stackable {
			return ErrPromotionStackingConflict
		}
	}
	return nil
}
