package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/policy"
	"tech-visit/backend/internal/repository"
	"tech-visit/backend/pkg/validate"
)

const timeLayout = "2006-01-02T15:04:05Z"

// RequestService 技术支持请求业务接口
type RequestService interface {
	// Submit 公开提交，状态固定为 pending
	Submit(ctx context.Context, req *dto.CreateTechRequestRequest) (*dto.SubmitTechRequestResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.TechRequestResponse, error)
	List(ctx context.Context, p policy.Principal, req *dto.TechRequestListRequest) ([]dto.TechRequestResponse, int64, error)
	// Take 认领：指派给调用方并置为 in_progress，可重复调用
	Take(ctx context.Context, id int64, p policy.Principal, notes *string) (*dto.TechRequestResponse, error)
	UpdateFields(ctx context.Context, id int64, p policy.Principal, patch *dto.UpdateTechRequestRequest) (*dto.StatusUpdateResponse, error)
	UpdateStatus(ctx context.Context, id int64, p policy.Principal, status string) (*dto.StatusUpdateResponse, error)
	Delete(ctx context.Context, id int64, p policy.Principal) error
}

type requestService struct {
	repo        *repository.Repository
	coordinator *consistencyCoordinator
	trigger     *NotificationTrigger
	txTimeout   time.Duration
	logger      *zap.Logger
}

// NewRequestService 创建 RequestService 实例
func NewRequestService(repo *repository.Repository, trigger *NotificationTrigger, txTimeout time.Duration, logger *zap.Logger) RequestService {
	return &requestService{
		repo:        repo,
		coordinator: newConsistencyCoordinator(logger),
		trigger:     trigger,
		txTimeout:   txTimeout,
		logger:      logger,
	}
}

// ────────────────────── Submit ──────────────────────

func (s *requestService) Submit(ctx context.Context, req *dto.CreateTechRequestRequest) (*dto.SubmitTechRequestResponse, error) {
	urgency := req.UrgencyLevel
	if urgency == "" {
		urgency = model.UrgencyMedium
	}
	if !model.IsValidUrgency(urgency) {
		return nil, ErrInvalidRequestField.WithFields(policy.FieldUrgencyLevel)
	}

	tr := &model.TechRequest{
		FullName:           req.FullName,
		Phone:              req.Phone,
		Email:              req.Email,
		Address:            req.Address,
		ProblemDescription: req.ProblemDescription,
		UrgencyLevel:       urgency,
		Status:             model.StatusPending,
	}
	if err := s.repo.Request.Create(ctx, tr); err != nil {
		s.logger.Error("创建请求失败", zap.Error(err))
		return nil, err
	}

	s.trigger.fire(ctx, tr)

	return &dto.SubmitTechRequestResponse{
		ID:        tr.ID,
		Status:    tr.Status,
		CreatedAt: tr.CreatedAt.Format(timeLayout),
	}, nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *requestService) GetByID(ctx context.Context, id int64) (*dto.TechRequestResponse, error) {
	tr, err := s.repo.Request.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		s.logger.Error("查询请求失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return toTechRequestResponse(tr), nil
}

func (s *requestService) List(ctx context.Context, p policy.Principal, req *dto.TechRequestListRequest) ([]dto.TechRequestResponse, int64, error) {
	filter := repository.TechRequestFilter{
		Status:          req.Status,
		UrgencyLevel:    req.UrgencyLevel,
		AssignedAdminID: req.AssignedAdminID,
		Unassigned:      req.Unassigned,
		Keyword:         req.Keyword,
	}
	if req.Mine {
		id := p.AdminID
		filter.AssignedAdminID = &id
	}

	items, total, err := s.repo.Request.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询请求列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.TechRequestResponse, 0, len(items))
	for i := range items {
		result = append(result, *toTechRequestResponse(&items[i]))
	}
	return result, total, nil
}

// ────────────────────── Take ──────────────────────

func (s *requestService) Take(ctx context.Context, id int64, p policy.Principal, notes *string) (*dto.TechRequestResponse, error) {
	var changed bool

	err := runBookingTx(ctx, s.repo, s.txTimeout, func(ctx context.Context, tx *repository.Repository) error {
		tr, err := tx.Request.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if !policy.CanTake(p, tr.AssignedAdminID) {
			return ErrRequestTaken
		}
		// completed/cancelled 在状态机中没有出边，认领不能绕过它重新打开
		if model.IsTerminalStatus(tr.Status) {
			return ErrRequestClosed
		}

		changed = tr.Status != model.StatusInProgress ||
			tr.AssignedAdminID == nil || *tr.AssignedAdminID != p.AdminID

		fields := map[string]interface{}{
			"assigned_admin_id": p.AdminID,
			"status":            model.StatusInProgress,
			"updated_by":        p.AdminID,
			"updated_at":        time.Now(),
		}
		if notes != nil {
			fields["notes"] = *notes
		}
		return tx.Request.Updates(ctx, tr.ID, fields)
	})
	if err != nil {
		s.logFailure("认领请求失败", id, err)
		return nil, err
	}

	tr, err := s.repo.Request.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		s.trigger.fire(ctx, tr)
	}
	return toTechRequestResponse(tr), nil
}

// ────────────────────── UpdateFields ──────────────────────

func (s *requestService) UpdateFields(ctx context.Context, id int64, p policy.Principal, patch *dto.UpdateTechRequestRequest) (*dto.StatusUpdateResponse, error) {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil, ErrEmptyPatch
	}
	// 字段级权限先于一切写入；任何字段越权则整体拒绝
	if denied := policy.DisallowedFields(p, fields, patch.AssignedAdminID); len(denied) > 0 {
		return nil, ErrFieldsForbidden.WithFields(denied...)
	}
	if invalid := invalidPatchFields(patch); len(invalid) > 0 {
		return nil, ErrInvalidRequestField.WithFields(invalid...)
	}

	effect := SlotEffectNone
	var statusChanged bool

	err := runBookingTx(ctx, s.repo, s.txTimeout, func(ctx context.Context, tx *repository.Repository) error {
		tr, err := tx.Request.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if !policy.CanEditRequest(p, tr.AssignedAdminID) {
			return ErrRequestForbidden
		}

		updates := patchColumns(patch)

		if patch.AssignedAdminID != nil && p.IsSystemAdmin() {
			assignee, err := tx.Admin.GetByID(ctx, *patch.AssignedAdminID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrAssigneeInvalid
				}
				return err
			}
			if !assignee.IsActive {
				return ErrAssigneeInvalid
			}
		}

		// 已绑定时间段时排期字段由时间段决定
		if (patch.ScheduledDate != nil || patch.ScheduledTime != nil) && tr.BookedSlotID != nil {
			slot, err := tx.Slot.GetByID(ctx, *tr.BookedSlotID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if slot == nil ||
				(patch.ScheduledDate != nil && *patch.ScheduledDate != slot.Date) ||
				(patch.ScheduledTime != nil && *patch.ScheduledTime != slot.StartTime) {
				return ErrScheduleBoundToSlot
			}
		}

		if patch.Status != nil {
			changed, err := checkTransition(tr.Status, *patch.Status)
			if err != nil {
				return err
			}
			if changed {
				effect, err = s.coordinator.onStatusChange(ctx, tx, tr, *patch.Status)
				if err != nil {
					return err
				}
				if effect == SlotEffectReleased {
					delete(updates, "scheduled_date")
					delete(updates, "scheduled_time")
				}
				statusChanged = true
			} else {
				delete(updates, "status")
			}
		}

		updates["updated_by"] = p.AdminID
		updates["updated_at"] = time.Now()
		return tx.Request.Updates(ctx, tr.ID, updates)
	})
	if err != nil {
		s.logFailure("更新请求失败", id, err)
		return nil, err
	}

	tr, err := s.repo.Request.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if statusChanged && tr.Status == model.StatusInProgress {
		s.trigger.fire(ctx, tr)
	}

	return &dto.StatusUpdateResponse{
		Request:    *toTechRequestResponse(tr),
		SlotEffect: effect,
	}, nil
}

func (s *requestService) UpdateStatus(ctx context.Context, id int64, p policy.Principal, status string) (*dto.StatusUpdateResponse, error) {
	return s.UpdateFields(ctx, id, p, &dto.UpdateTechRequestRequest{Status: &status})
}

// ────────────────────── Delete ──────────────────────

func (s *requestService) Delete(ctx context.Context, id int64, p policy.Principal) error {
	if !policy.CanDeleteRequest(p.Role) {
		return ErrRequestForbidden
	}

	err := runBookingTx(ctx, s.repo, s.txTimeout, func(ctx context.Context, tx *repository.Repository) error {
		tr, err := tx.Request.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		_, err = s.coordinator.onDelete(ctx, tx, tr)
		return err
	})
	if err != nil {
		s.logFailure("删除请求失败", id, err)
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

// logFailure 业务错误不记录，基础设施错误记 ERROR
func (s *requestService) logFailure(msg string, id int64, err error) {
	if isBusinessError(err) {
		return
	}
	s.logger.Error(msg, zap.Int64("request_id", id), zap.Error(err))
}

// invalidPatchFields 服务层兜底校验（HTTP 层已有 binding 校验）
func invalidPatchFields(patch *dto.UpdateTechRequestRequest) []string {
	var invalid []string
	if patch.UrgencyLevel != nil && !model.IsValidUrgency(*patch.UrgencyLevel) {
		invalid = append(invalid, policy.FieldUrgencyLevel)
	}
	if patch.Status != nil && !model.IsValidStatus(*patch.Status) {
		invalid = append(invalid, policy.FieldStatus)
	}
	if patch.ScheduledDate != nil && !validate.IsDate(*patch.ScheduledDate) {
		invalid = append(invalid, policy.FieldScheduledDate)
	}
	if patch.ScheduledTime != nil && !validate.IsClock(*patch.ScheduledTime) {
		invalid = append(invalid, policy.FieldScheduledTime)
	}
	return invalid
}

// patchColumns 补丁 → 列更新映射
func patchColumns(patch *dto.UpdateTechRequestRequest) map[string]interface{} {
	updates := make(map[string]interface{})
	set := func(col string, v *string) {
		if v != nil {
			updates[col] = *v
		}
	}
	set("full_name", patch.FullName)
	set("phone", patch.Phone)
	set("email", patch.Email)
	set("address", patch.Address)
	set("problem_description", patch.ProblemDescription)
	set("urgency_level", patch.UrgencyLevel)
	set("status", patch.Status)
	set("notes", patch.Notes)
	set("scheduled_date", patch.ScheduledDate)
	set("scheduled_time", patch.ScheduledTime)
	if patch.AssignedAdminID != nil {
		updates["assigned_admin_id"] = *patch.AssignedAdminID
	}
	return updates
}

func toTechRequestResponse(tr *model.TechRequest) *dto.TechRequestResponse {
	resp := &dto.TechRequestResponse{
		ID:                 tr.ID,
		FullName:           tr.FullName,
		Phone:              tr.Phone,
		Email:              tr.Email,
		Address:            tr.Address,
		ProblemDescription: tr.ProblemDescription,
		UrgencyLevel:       tr.UrgencyLevel,
		Status:             tr.Status,
		Notes:              tr.Notes,
		ScheduledDate:      tr.ScheduledDate,
		ScheduledTime:      tr.ScheduledTime,
		AssignedAdminID:    tr.AssignedAdminID,
		BookedSlotID:       tr.BookedSlotID,
		CreatedAt:          tr.CreatedAt.Format(timeLayout),
		UpdatedAt:          tr.UpdatedAt.Format(timeLayout),
	}
	if tr.AssignedAdmin != nil {
		resp.AssignedAdmin = &dto.AdminBrief{
			ID:          tr.AssignedAdmin.ID,
			Username:    tr.AssignedAdmin.Username,
			DisplayName: tr.AssignedAdmin.DisplayName,
		}
	}
	if tr.BookedSlot != nil {
		resp.BookedSlot = toSlotResponse(tr.BookedSlot)
	}
	return resp
}
