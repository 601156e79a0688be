package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/policy"
	"tech-visit/backend/internal/repository"
	pkgerrors "tech-visit/backend/pkg/errors"
	"tech-visit/backend/pkg/validate"
)

// ── ICS 空闲日历导入 ──────────────────────────────────────────
//
// 将志愿者的空闲日历（RFC 5545）展开为 (date, start, end) 时间段：
//   - DTSTART/DTEND 确定日期与时段，跨天或全天事件跳过
//   - RRULE 仅支持 DAILY / WEEKLY，配合 INTERVAL、COUNT、UNTIL、EXDATE
//   - 只导入 [今天, 今天+N 天] 范围内的实例
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 15 * time.Second
	// 单个重复事件在导入范围内展开的实例上限
	icsMaxOccurrences = 1000
	// daysAhead 未配置时的导入范围
	icsDefaultHorizonDays = 90
)

// slotWindow ICS 展开后的单个时间段
type slotWindow struct {
	Date      string
	StartTime string
	EndTime   string
}

func (w slotWindow) String() string {
	return w.Date + " " + w.StartTime + "-" + w.EndTime
}

// FetchICSContent 从 URL 获取 ICS 内容，响应体超过 5MB 返回 ErrSlotICSTooLarge
func FetchICSContent(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	ctx, cancel := context.WithTimeout(ctx, icsFetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	if resp.ContentLength > icsMaxFileSize {
		return nil, ErrSlotICSTooLarge
	}

	data, err := readICS(resp.Body)
	if err != nil {
		if _, ok := pkgerrors.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("读取 ICS 失败: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// readICS 读取整个 ICS 内容，超过上限时报错而不是截断
func readICS(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, icsMaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > icsMaxFileSize {
		return nil, ErrSlotICSTooLarge
	}
	return data, nil
}

// ────────────────────── ImportICS ──────────────────────

func (s *slotService) ImportICS(ctx context.Context, p policy.Principal, reader io.Reader) (*dto.BulkCreateSlotResponse, error) {
	if !policy.CanManageSlots(p.Role) {
		return nil, ErrSlotForbidden
	}

	horizon := s.daysAhead
	if horizon <= 0 {
		horizon = icsDefaultHorizonDays
	}
	today := s.now().In(s.loc)
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, horizon+1)

	data, err := readICS(reader)
	if err != nil {
		if _, ok := pkgerrors.As(err); ok {
			return nil, err
		}
		return nil, ErrSlotICSParse.WithFields(err.Error())
	}
	windows, err := parseAvailabilityICS(bytes.NewReader(data), from, to, s.loc)
	if err != nil {
		return nil, ErrSlotICSParse.WithFields(err.Error())
	}
	if len(windows) == 0 {
		return nil, ErrSlotICSEmpty
	}

	resp := &dto.BulkCreateSlotResponse{
		Created: []dto.SlotResponse{},
		Skipped: []string{},
	}

	err = runBookingTx(ctx, s.repo, s.txTimeout, func(ctx context.Context, tx *repository.Repository) error {
		for _, w := range windows {
			if _, err := tx.Slot.FindByTriple(ctx, w.Date, w.StartTime, w.EndTime); err == nil {
				resp.Skipped = append(resp.Skipped, w.String())
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			slot := model.AvailableSlot{Date: w.Date, StartTime: w.StartTime, EndTime: w.EndTime}
			slot.CreatedBy = &p.AdminID
			slot.UpdatedBy = &p.AdminID
			if err := tx.Slot.Create(ctx, &slot); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrSlotExists
				}
				return err
			}
			resp.Created = append(resp.Created, *toSlotResponse(&slot))
		}
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("导入 ICS 时间段失败", zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("ICS 时间段导入完成",
		zap.Int64("admin_id", p.AdminID),
		zap.Int("created", len(resp.Created)),
		zap.Int("skipped", len(resp.Skipped)),
	)
	return resp, nil
}

// ── ICS 解析 ──

// parseAvailabilityICS 展开 [from, to) 内的所有事件实例，按日期与时段排序并去重
func parseAvailabilityICS(reader io.Reader, from, to time.Time, loc *time.Location) ([]slotWindow, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	seen := make(map[slotWindow]bool)
	var windows []slotWindow
	for _, evt := range cal.Events() {
		for _, w := range expandVEvent(evt, from, to, loc) {
			if seen[w] {
				continue
			}
			seen[w] = true
			windows = append(windows, w)
		}
	}

	sort.Slice(windows, func(i, j int) bool {
		if windows[i].Date != windows[j].Date {
			return windows[i].Date < windows[j].Date
		}
		return windows[i].StartTime < windows[j].StartTime
	})
	return windows, nil
}

// expandVEvent 将单个 VEVENT 展开为时间段实例
func expandVEvent(evt *ics.VEvent, from, to time.Time, loc *time.Location) []slotWindow {
	dtStart, ok := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if !ok {
		return nil
	}
	dtEnd, ok := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if !ok {
		return nil
	}

	startClock := dtStart.Format(validate.ClockLayout)
	endClock := dtEnd.Format(validate.ClockLayout)
	// 跨天或全天事件无法映射为单日时段
	if dtEnd.Format(validate.DateLayout) != dtStart.Format(validate.DateLayout) ||
		!validate.ClockBefore(startClock, endClock) {
		return nil
	}

	window := func(day time.Time) slotWindow {
		return slotWindow{Date: day.Format(validate.DateLayout), StartTime: startClock, EndTime: endClock}
	}
	inRange := func(day time.Time) bool {
		return !day.Before(from) && day.Before(to)
	}

	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		if inRange(dtStart) {
			return []slotWindow{window(dtStart)}
		}
		return nil
	}

	rule := parseRRule(rruleProp.Value)
	var period int // 相邻实例间隔天数
	switch rule.freq {
	case "DAILY":
		period = rule.interval
	case "WEEKLY":
		period = 7 * rule.interval
	default:
		// 其他频率只取首个实例
		if inRange(dtStart) {
			return []slotWindow{window(dtStart)}
		}
		return nil
	}

	exDates := parseExDates(evt, loc)
	var out []slotWindow
	current := dtStart
	n := 0
	// DTSTART 早于导入范围时直接跳到范围附近，COUNT 仍按跳过的实例数计算
	if current.Before(from) {
		skip := int(from.Sub(current).Hours()/24) / period
		if rule.count > 0 && skip > rule.count {
			skip = rule.count
		}
		current = current.AddDate(0, 0, skip*period)
		n = skip
	}
	for ; len(out) < icsMaxOccurrences; n++ {
		if rule.count > 0 && n >= rule.count {
			break
		}
		if !rule.until.IsZero() && current.After(rule.until) {
			break
		}
		if !current.Before(to) {
			break
		}
		if inRange(current) && !exDates[current.Format(validate.DateLayout)] {
			out = append(out, window(current))
		}
		current = current.AddDate(0, 0, period)
	}
	return out
}

// rruleParams RRULE 解析结果
type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

// parseRRule 解析 RRULE 字符串（如 FREQ=WEEKLY;COUNT=16;INTERVAL=1）
func parseRRule(value string) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			if n, err := strconv.Atoi(kv[1]); err == nil && n > 0 {
				r.interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(kv[1]); err == nil && n > 0 {
				r.count = n
			}
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				t, _ = time.Parse("20060102", kv[1])
				if !t.IsZero() {
					// 仅日期的 UNTIL 包含当天
					t = t.Add(24*time.Hour - time.Second)
				}
			}
			r.until = t
		}
	}
	return r
}

// parseExDates 解析事件中所有 EXDATE（可能以逗号分隔多个值）
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			if t, ok := parseICSValue(strings.TrimSpace(v), icsTZID(prop.ICalParameters), loc); ok {
				exDates[t.Format(validate.DateLayout)] = true
			}
		}
	}
	return exDates
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性；仅日期（全天）的值视为无效
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, bool) {
	prop := evt.GetProperty(propName)
	if prop == nil || len(prop.Value) == len("20060102") {
		return time.Time{}, false
	}
	return parseICSValue(prop.Value, icsTZID(prop.ICalParameters), loc)
}

func parseICSValue(val, tzid string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.In(loc), true
	}
	for _, layout := range []string{"20060102T150405", "20060102"} {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		src := loc
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				src = tzLoc
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, src).In(loc), true
	}
	return time.Time{}, false
}

func icsTZID(params map[string][]string) string {
	for k, v := range params {
		if strings.EqualFold(k, "TZID") && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// loadLocation 解析时区名；为空或无法解析时使用本地时区
func loadLocation(timezone string, logger *zap.Logger) *time.Location {
	if timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("时区无法解析，使用本地时区", zap.String("timezone", timezone), zap.Error(err))
		return time.Local
	}
	return loc
}
