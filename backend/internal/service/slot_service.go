package service

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/policy"
	"tech-visit/backend/internal/repository"
	"tech-visit/backend/pkg/validate"
)

// SlotService 可预约时间段业务接口
type SlotService interface {
	Create(ctx context.Context, p policy.Principal, req *dto.CreateSlotRequest) (*dto.SlotResponse, error)
	// BulkCreate 同一时段批量创建多个日期；已存在或重复的日期跳过并返回
	BulkCreate(ctx context.Context, p policy.Principal, req *dto.BulkCreateSlotRequest) (*dto.BulkCreateSlotResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.SlotResponse, error)
	List(ctx context.Context, req *dto.SlotListRequest) ([]dto.SlotResponse, error)
	// ListAvailable 公开接口：今天起 N 天内未被预约的时间段
	ListAvailable(ctx context.Context) ([]dto.SlotResponse, error)
	Book(ctx context.Context, p policy.Principal, slotID, requestID int64) (*dto.BookingResponse, error)
	Release(ctx context.Context, p policy.Principal, slotID int64) (*dto.ReleaseSlotResponse, error)
	Delete(ctx context.Context, p policy.Principal, slotID int64) error
	// ImportICS 从空闲日历导入时间段；已存在的跳过
	ImportICS(ctx context.Context, p policy.Principal, reader io.Reader) (*dto.BulkCreateSlotResponse, error)
}

type slotService struct {
	repo      *repository.Repository
	allocator *slotAllocator
	txTimeout time.Duration
	daysAhead int
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewSlotService 创建 SlotService 实例；timezone 用于解析 ICS 导入
func NewSlotService(repo *repository.Repository, txTimeout time.Duration, daysAhead int, timezone string, logger *zap.Logger) SlotService {
	return &slotService{
		repo:      repo,
		allocator: newSlotAllocator(logger),
		txTimeout: txTimeout,
		daysAhead: daysAhead,
		loc:       loadLocation(timezone, logger),
		now:       time.Now,
		logger:    logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *slotService) Create(ctx context.Context, p policy.Principal, req *dto.CreateSlotRequest) (*dto.SlotResponse, error) {
	if !policy.CanManageSlots(p.Role) {
		return nil, ErrSlotForbidden
	}
	if !validate.IsDate(req.Date) || !validate.ClockBefore(req.StartTime, req.EndTime) {
		return nil, ErrSlotInvalidRange
	}

	if _, err := s.repo.Slot.FindByTriple(ctx, req.Date, req.StartTime, req.EndTime); err == nil {
		return nil, ErrSlotExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询时间段失败", zap.Error(err))
		return nil, err
	}

	slot := &model.AvailableSlot{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	slot.CreatedBy = &p.AdminID
	slot.UpdatedBy = &p.AdminID

	if err := s.repo.Slot.Create(ctx, slot); err != nil {
		// 预检查与插入之间的并发创建由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlotExists
		}
		s.logger.Error("创建时间段失败", zap.Error(err))
		return nil, err
	}

	return toSlotResponse(slot), nil
}

// ────────────────────── BulkCreate ──────────────────────

func (s *slotService) BulkCreate(ctx context.Context, p policy.Principal, req *dto.BulkCreateSlotRequest) (*dto.BulkCreateSlotResponse, error) {
	if !policy.CanManageSlots(p.Role) {
		return nil, ErrSlotForbidden
	}
	if !validate.ClockBefore(req.StartTime, req.EndTime) {
		return nil, ErrSlotInvalidRange
	}
	for _, d := range req.Dates {
		if !validate.IsDate(d) {
			return nil, ErrSlotInvalidRange.WithFields(d)
		}
	}

	resp := &dto.BulkCreateSlotResponse{
		Created: []dto.SlotResponse{},
		Skipped: []string{},
	}

	err := runBookingTx(ctx, s.repo, s.txTimeout, func(ctx context.Context, tx *repository.Repository) error {
		existing, err := tx.Slot.ExistingDates(ctx, req.Dates, req.StartTime, req.EndTime)
		if err != nil {
			return err
		}

		seen := make(map[string]bool, len(req.Dates))
		slots := make([]model.AvailableSlot, 0, len(req.Dates))
		for _, d := range req.Dates {
			if existing[d] || seen[d] {
				resp.Skipped = append(resp.Skipped, d)
				continue
			}
			seen[d] = true
			slot := model.AvailableSlot{Date: d, StartTime: req.StartTime, EndTime: req.EndTime}
			slot.CreatedBy = &p.AdminID
			slot.UpdatedBy = &p.AdminID
			slots = append(slots, slot)
		}

		if err := tx.Slot.BatchCreate(ctx, slots); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlotExists
			}
			return err
		}
		for i := range slots {
			resp.Created = append(resp.Created, *toSlotResponse(&slots[i]))
		}
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("批量创建时间段失败", zap.Error(err))
		}
		return nil, err
	}

	return resp, nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *slotService) GetByID(ctx context.Context, id int64) (*dto.SlotResponse, error) {
	slot, err := s.repo.Slot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询时间段失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return toSlotResponse(slot), nil
}

func (s *slotService) List(ctx context.Context, req *dto.SlotListRequest) ([]dto.SlotResponse, error) {
	return s.list(ctx, repository.SlotFilter{
		DateFrom:      req.DateFrom,
		DateTo:        req.DateTo,
		AvailableOnly: req.AvailableOnly,
	})
}

func (s *slotService) ListAvailable(ctx context.Context) ([]dto.SlotResponse, error) {
	today := s.now()
	filter := repository.SlotFilter{
		DateFrom:      today.Format(validate.DateLayout),
		AvailableOnly: true,
	}
	if s.daysAhead > 0 {
		filter.DateTo = today.AddDate(0, 0, s.daysAhead).Format(validate.DateLayout)
	}
	return s.list(ctx, filter)
}

func (s *slotService) list(ctx context.Context, filter repository.SlotFilter) ([]dto.SlotResponse, error) {
	slots, err := s.repo.Slot.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出时间段失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, *toSlotResponse(&slots[i]))
	}
	return result, nil
}

// ────────────────────── Book / Release / Delete ──────────────────────

func (s *slotService) Book(ctx context.Context, p policy.Principal, slotID, requestID int64) (*dto.BookingResponse, error) {
	var (
		slot *model.AvailableSlot
		req  *model.TechRequest
	)
	err := runBookingTx(ctx, s.repo, s.txTimeout, func(ctx context.Context, tx *repository.Repository) error {
		var err error
		slot, req, err = s.allocator.book(ctx, tx, p, slotID, requestID)
		return err
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("预约时间段失败",
				zap.Int64("slot_id", slotID),
				zap.Int64("request_id", requestID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	return &dto.BookingResponse{
		Slot:    *toSlotResponse(slot),
		Request: *toTechRequestResponse(req),
	}, nil
}

func (s *slotService) Release(ctx context.Context, p policy.Principal, slotID int64) (*dto.ReleaseSlotResponse, error) {
	var (
		slot *model.AvailableSlot
		ids  []int64
	)
	err := runBookingTx(ctx, s.repo, s.txTimeout, func(ctx context.Context, tx *repository.Repository) error {
		var err error
		slot, ids, err = s.allocator.release(ctx, tx, p, slotID)
		return err
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("释放时间段失败", zap.Int64("slot_id", slotID), zap.Error(err))
		}
		return nil, err
	}

	return &dto.ReleaseSlotResponse{
		Slot:             *toSlotResponse(slot),
		ReleasedRequests: ids,
	}, nil
}

func (s *slotService) Delete(ctx context.Context, p policy.Principal, slotID int64) error {
	if !policy.CanManageSlots(p.Role) {
		return ErrSlotForbidden
	}

	err := runBookingTx(ctx, s.repo, s.txTimeout, func(ctx context.Context, tx *repository.Repository) error {
		return s.allocator.remove(ctx, tx, slotID)
	})
	if err != nil && !isBusinessError(err) {
		s.logger.Error("删除时间段失败", zap.Int64("slot_id", slotID), zap.Error(err))
	}
	return err
}

// ── 内部辅助方法 ──

func toSlotResponse(slot *model.AvailableSlot) *dto.SlotResponse {
	return &dto.SlotResponse{
		ID:        slot.ID,
		Date:      slot.Date,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		IsBooked:  slot.IsBooked,
		CreatedAt: slot.CreatedAt.Format(timeLayout),
	}
}
