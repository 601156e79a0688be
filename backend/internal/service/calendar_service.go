package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/policy"
	"tech-visit/backend/internal/repository"
	"tech-visit/backend/pkg/validate"
)

// 未绑定时间段（如完成后时间段已删除）时的默认上门时长
const defaultVisitDuration = time.Hour

// CalendarService 上门日历（iCalendar）业务接口
type CalendarService interface {
	// VisitsICS 导出已排期且未取消的上门记录；mine 为 true 时只含分配给调用方的
	VisitsICS(ctx context.Context, p policy.Principal, mine bool) (string, error)
}

type calendarService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例；timezone 无法解析时使用本地时区
func NewCalendarService(repo *repository.Repository, timezone string, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, loc: loadLocation(timezone, logger), now: time.Now, logger: logger}
}

func (s *calendarService) VisitsICS(ctx context.Context, p policy.Principal, mine bool) (string, error) {
	var assignee *int64
	if mine {
		id := p.AdminID
		assignee = &id
	}

	items, err := s.repo.Request.ListScheduled(ctx, assignee)
	if err != nil {
		s.logger.Error("查询已排期请求失败", zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//tech-visit//visits//ZH")
	if mine {
		cal.SetXWRCalName("我的上门安排")
	} else {
		cal.SetXWRCalName("上门安排")
	}

	stamp := s.now().UTC()
	for i := range items {
		tr := &items[i]
		start, end, ok := s.visitWindow(tr)
		if !ok {
			s.logger.Warn("排期格式错误，已跳过", zap.Int64("request_id", tr.ID))
			continue
		}

		event := cal.AddEvent(fmt.Sprintf("request-%d@tech-visit", tr.ID))
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(fmt.Sprintf("上门支持 #%d %s", tr.ID, tr.FullName))
		event.SetLocation(tr.Address)
		event.SetDescription(visitDescription(tr))
	}

	return cal.Serialize(), nil
}

// visitWindow 由排期字段与绑定时间段计算上门起止时间
func (s *calendarService) visitWindow(tr *model.TechRequest) (time.Time, time.Time, bool) {
	if tr.ScheduledDate == nil || tr.ScheduledTime == nil {
		return time.Time{}, time.Time{}, false
	}
	start, err := time.ParseInLocation(validate.DateLayout+" "+validate.ClockLayout, *tr.ScheduledDate+" "+*tr.ScheduledTime, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	end := start.Add(defaultVisitDuration)
	if tr.BookedSlot != nil && validate.IsClock(tr.BookedSlot.EndTime) {
		if t, err := time.ParseInLocation(validate.DateLayout+" "+validate.ClockLayout, *tr.ScheduledDate+" "+tr.BookedSlot.EndTime, s.loc); err == nil && t.After(start) {
			end = t
		}
	}
	return start, end, true
}

func visitDescription(tr *model.TechRequest) string {
	desc := fmt.Sprintf("联系人: %s\n电话: %s\n紧急程度: %s\n状态: %s\n问题: %s",
		tr.FullName, tr.Phone, tr.UrgencyLevel, tr.Status, tr.ProblemDescription)
	if tr.Notes != nil && *tr.Notes != "" {
		desc += "\n备注: " + *tr.Notes
	}
	return desc
}
