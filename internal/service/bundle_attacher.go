package service

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/metrics"
	"github.com/dujiao-next/promoengine/internal/models"

	"gorm.io/gorm"
)

// BundleAttacher 组合优惠自动挂载器
type BundleAttacher struct {
	registry *PromotionRegistry
	applier  *PromotionApplier
}

// AutoAttachBundles 按当前行项目挂载满足条件的组合优惠，并解除不再满足的组合优惠
// 挂载失败（叠加冲突、已用尽等）只记录日志，不影响调用方。
func (b *BundleAttacher) AutoAttachBundles(ctx context.Context, tx *gorm.DB, redeemable models.Redeemable) error {
	return b.attach(ctx, tx, redeemable, b.applier.now())
}

func (b *BundleAttacher) attach(ctx context.Context, tx *gorm.DB, redeemable models.Redeemable, now time.Time) error {
	redeemableType := redeemable.RedeemableType()
	redeemableID := redeemable.RedeemableID()
	items := redeemable.LineItems()
	linkRepo := b.applier.linkRepo.WithTx(tx)
	usageRepo := b.applier.usageRepo.WithTx(tx)

	attached, err := linkRepo.ListPromotions(redeemableType, redeemableID)
	if err != nil {
		return err
	}
	attachedIDs := make(map[uint]struct{}, len(attached))
	for i := range attached {
		promotion := &attached[i]
		if !promotion.IsBundle() || MatchesBundle(promotion, items) {
			attachedIDs[promotion.ID] = struct{}{}
			continue
		}
		if _, err := linkRepo.Detach(redeemableType, redeemableID, promotion.ID); err != nil {
			return err
		}
		usage, err := usageRepo.GetByTarget(promotion.ID, redeemableType, redeemableID)
		if err != nil {
			return err
		}
		if usage != nil && usage.IsActive {
			if err := usageRepo.SetActive(usage.ID, false); err != nil {
				return err
			}
		}
		metrics.BundleAutoAttach("detached")
		logger.Debugw("bundle_auto_detached",
			"redeemable_type", redeemableType,
			"redeemable_id", redeemableID,
			"promotion_id", promotion.ID,
		)
	}

	bundles, err := b.registry.ActiveBundles(ctx, tx, now)
	if err != nil {
		return err
	}
	for i := range bundles {
		bundle := &bundles[i]
		if _, ok := attachedIDs[bundle.ID]; ok {
			continue
		}
		if !MatchesBundle(bundle, items) {
			continue
		}
		// 缓存中的使用次数可能滞后，挂载前在事务内重新读取
		latest, err := b.applier.promotionRepo.WithTx(tx).GetByID(bundle.ID)
		if err != nil {
			return err
		}
		if latest == nil {
			continue
		}
		if err := b.applier.attachPromotion(tx, redeemable, latest, now); err != nil {
			var promoErr *PromotionError
			if errors.As(err, &promoErr) {
				metrics.BundleAutoAttach("skipped")
				logger.Infow("bundle_auto_attach_skipped",
					"redeemable_type", redeemableType,
					"redeemable_id", redeemableID,
					"promotion_id", bundle.ID,
					"error_code", promoErr.Code,
				)
				continue
			}
			return err
		}
		attachedIDs[bundle.ID] = struct{}{}
		metrics.BundleAutoAttach("attached")
	}
	return nil
}
