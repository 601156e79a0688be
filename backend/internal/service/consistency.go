package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/repository"
	pkgerrors "tech-visit/backend/pkg/errors"
)

// 状态变更对绑定时间段的影响
const (
	SlotEffectNone          = "none"
	SlotEffectReleased      = "released"
	SlotEffectDeleted       = "deleted"
	SlotEffectCleanupFailed = "cleanup_failed"
)

// consistencyCoordinator 保持请求状态与时间段一致
// 所有方法运行在调用方的事务内
type consistencyCoordinator struct {
	logger *zap.Logger
}

func newConsistencyCoordinator(logger *zap.Logger) *consistencyCoordinator {
	return &consistencyCoordinator{logger: logger}
}

// onStatusChange 在写入新状态之前调用
func (c *consistencyCoordinator) onStatusChange(ctx context.Context, tx *repository.Repository, req *model.TechRequest, to string) (string, error) {
	switch to {
	case model.StatusCancelled:
		return c.releaseFor(ctx, tx, req)
	case model.StatusCompleted:
		return c.deleteFor(ctx, tx, req), nil
	default:
		return SlotEffectNone, nil
	}
}

// onDelete 硬删除请求：先释放时间段再删除记录
func (c *consistencyCoordinator) onDelete(ctx context.Context, tx *repository.Repository, req *model.TechRequest) (string, error) {
	effect, err := c.releaseFor(ctx, tx, req)
	if err != nil {
		return "", err
	}
	if err := tx.Request.Delete(ctx, req.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrRequestNotFound
		}
		return "", err
	}
	return effect, nil
}

// releaseFor 释放请求占用的时间段
// 时间段已不存在或已是未预约状态时仍清空请求上的绑定字段
func (c *consistencyCoordinator) releaseFor(ctx context.Context, tx *repository.Repository, req *model.TechRequest) (string, error) {
	if req.BookedSlotID == nil {
		return SlotEffectNone, nil
	}
	slotID := *req.BookedSlotID

	slot, err := tx.Slot.GetByIDForUpdate(ctx, slotID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.logger.Warn("请求引用的时间段不存在", zap.Int64("request_id", req.ID), zap.Int64("slot_id", slotID))
	case err != nil:
		return "", err
	case slot.IsBooked:
		if err := tx.Slot.SetBooked(ctx, slotID, false); err != nil && !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return "", err
		}
	default:
		c.logger.Warn("请求引用的时间段处于未预约状态", zap.Int64("request_id", req.ID), zap.Int64("slot_id", slotID))
	}

	if _, err := tx.Request.ClearBooking(ctx, slotID); err != nil {
		return "", err
	}
	req.BookedSlotID = nil
	req.ScheduledDate = nil
	req.ScheduledTime = nil
	return SlotEffectReleased, nil
}

// deleteFor 完成后删除已用过的时间段
// 在保存点内执行，失败只回滚到保存点并记录告警，状态更新照常提交
func (c *consistencyCoordinator) deleteFor(ctx context.Context, tx *repository.Repository, req *model.TechRequest) string {
	if req.BookedSlotID == nil {
		return SlotEffectNone
	}
	slotID := *req.BookedSlotID

	err := tx.Transaction(ctx, func(sp *repository.Repository) error {
		refs, err := sp.Request.ListBySlot(ctx, slotID)
		if err != nil {
			return err
		}
		for i := range refs {
			if refs[i].ID != req.ID {
				return fmt.Errorf("时间段仍被请求 %d 引用", refs[i].ID)
			}
		}
		if _, err := sp.Request.DetachSlot(ctx, slotID); err != nil {
			return err
		}
		if err := sp.Slot.Delete(ctx, slotID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("完成请求后清理时间段失败",
			zap.Int64("request_id", req.ID),
			zap.Int64("slot_id", slotID),
			zap.Error(err),
		)
		return SlotEffectCleanupFailed
	}

	req.BookedSlotID = nil
	return SlotEffectDeleted
}
