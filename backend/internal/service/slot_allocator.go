package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/policy"
	"tech-visit/backend/internal/repository"
	pkgerrors "tech-visit/backend/pkg/errors"
)

// txFunc 在事务内执行的业务函数，ctx 已带事务超时
type txFunc func(ctx context.Context, tx *repository.Repository) error

// 死锁、序列化失败，调用方可重试
const (
	sqlStateDeadlock      = "40P01"
	sqlStateSerialization = "40001"
)

// runBookingTx 带超时的事务执行器；超时、死锁映射为可重试的 ErrBookingBusy
func runBookingTx(ctx context.Context, repo *repository.Repository, timeout time.Duration, fn txFunc) error {
	txCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := repo.Transaction(txCtx, func(tx *repository.Repository) error {
		return fn(txCtx, tx)
	})
	if err == nil {
		return nil
	}
	if _, ok := pkgerrors.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(txCtx.Err(), context.DeadlineExceeded) {
		return ErrBookingBusy
	}
	if isRetryableTxError(err) {
		return ErrBookingBusy
	}
	return err
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateDeadlock || pgErr.Code == sqlStateSerialization
}

// slotAllocator 时间段与请求的配对/解绑/删除，所有方法都必须在事务内调用
type slotAllocator struct {
	logger *zap.Logger
}

func newSlotAllocator(logger *zap.Logger) *slotAllocator {
	return &slotAllocator{logger: logger}
}

// book 将时间段绑定到请求
// 加锁顺序：请求行在前，时间段行在后。release/remove 同样先锁引用它的请求
func (a *slotAllocator) book(ctx context.Context, tx *repository.Repository, p policy.Principal, slotID, requestID int64) (*model.AvailableSlot, *model.TechRequest, error) {
	req, err := tx.Request.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRequestNotFound
		}
		return nil, nil, err
	}
	if !policy.CanEditRequest(p, req.AssignedAdminID) {
		return nil, nil, ErrRequestForbidden
	}
	if req.BookedSlotID != nil {
		return nil, nil, ErrRequestHasSlot
	}
	if model.IsTerminalStatus(req.Status) {
		return nil, nil, ErrRequestClosed
	}

	slot, err := tx.Slot.GetByIDForUpdate(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSlotNotFound
		}
		return nil, nil, err
	}
	if slot.IsBooked {
		return nil, nil, ErrSlotAlreadyBooked
	}

	// 条件更新：is_booked 已被并发事务置为 true 时命中 0 行
	if err := tx.Slot.SetBooked(ctx, slot.ID, true); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, nil, ErrSlotAlreadyBooked
		}
		return nil, nil, err
	}
	slot.IsBooked = true

	err = tx.Request.Updates(ctx, req.ID, map[string]interface{}{
		"booked_slot_id": slot.ID,
		"scheduled_date": slot.Date,
		"scheduled_time": slot.StartTime,
		"updated_by":     p.AdminID,
		"updated_at":     time.Now(),
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 另有请求残留引用该时间段
			return nil, nil, ErrSlotAlreadyBooked
		}
		return nil, nil, err
	}

	updated, err := tx.Request.GetByID(ctx, req.ID)
	if err != nil {
		return nil, nil, err
	}
	return slot, updated, nil
}

// release 释放已预约的时间段，清空所有引用它的请求的排期字段
// 志愿者只能释放自己可编辑的请求所占用的时间段
func (a *slotAllocator) release(ctx context.Context, tx *repository.Repository, p policy.Principal, slotID int64) (*model.AvailableSlot, []int64, error) {
	if _, err := tx.Request.ListBySlotForUpdate(ctx, slotID); err != nil {
		return nil, nil, err
	}
	slot, err := tx.Slot.GetByIDForUpdate(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSlotNotFound
		}
		return nil, nil, err
	}
	if !slot.IsBooked {
		return nil, nil, ErrSlotNotBooked
	}

	// 加锁期间可能有预约已提交，持有时间段锁后重新读取引用
	refs, err := tx.Request.ListBySlot(ctx, slot.ID)
	if err != nil {
		return nil, nil, err
	}
	if !p.IsSystemAdmin() {
		if len(refs) == 0 {
			return nil, nil, ErrRequestForbidden
		}
		for i := range refs {
			if !policy.CanEditRequest(p, refs[i].AssignedAdminID) {
				return nil, nil, ErrRequestForbidden
			}
		}
	}

	ids := make([]int64, 0, len(refs))
	for i := range refs {
		ids = append(ids, refs[i].ID)
	}
	if _, err := tx.Request.ClearBooking(ctx, slot.ID); err != nil {
		return nil, nil, err
	}
	if err := tx.Slot.SetBooked(ctx, slot.ID, false); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, nil, ErrSlotNotBooked
		}
		return nil, nil, err
	}
	slot.IsBooked = false

	return slot, ids, nil
}

// remove 硬删除时间段；已预约且被引用时拒绝，残留引用先清理
func (a *slotAllocator) remove(ctx context.Context, tx *repository.Repository, slotID int64) error {
	if _, err := tx.Request.ListBySlotForUpdate(ctx, slotID); err != nil {
		return err
	}
	slot, err := tx.Slot.GetByIDForUpdate(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSlotNotFound
		}
		return err
	}

	refs, err := tx.Request.ListBySlot(ctx, slot.ID)
	if err != nil {
		return err
	}
	if slot.IsBooked && len(refs) > 0 {
		return ErrSlotInUse
	}
	if len(refs) > 0 {
		a.logger.Warn("删除时间段时发现残留引用，已清理",
			zap.Int64("slot_id", slot.ID),
			zap.Int("refs", len(refs)),
		)
		if _, err := tx.Request.ClearBooking(ctx, slot.ID); err != nil {
			return err
		}
	}

	if err := tx.Slot.Delete(ctx, slot.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSlotNotFound
		}
		return err
	}
	return nil
}
