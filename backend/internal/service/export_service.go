package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/policy"
	"tech-visit/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportRequests 按筛选条件导出请求列表为 Excel
	ExportRequests(ctx context.Context, p policy.Principal, req *dto.ExportRequestsRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, now: time.Now, logger: logger}
}

var exportHeaders = []string{
	"编号", "姓名", "电话", "邮箱", "地址", "问题描述", "紧急程度",
	"状态", "负责人", "预约日期", "预约时间", "备注", "提交时间",
}

var exportColWidths = []float64{8, 14, 16, 26, 30, 40, 10, 10, 14, 12, 10, 30, 20}

// ═══════════════════════════════════════════════════════════
// ExportRequests 导出请求为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：单个 Sheet "请求列表"，第 1 行表头，每个请求一行，按提交时间倒序

func (s *exportService) ExportRequests(ctx context.Context, p policy.Principal, req *dto.ExportRequestsRequest) (*bytes.Buffer, string, error) {
	if !p.IsSystemAdmin() {
		return nil, "", ErrRequestForbidden
	}

	// 1. 查询请求（不分页）
	items, _, err := s.repo.Request.List(ctx, repository.TechRequestFilter{
		Status:          req.Status,
		UrgencyLevel:    req.UrgencyLevel,
		AssignedAdminID: req.AssignedAdminID,
	}, 0, 0)
	if err != nil {
		s.logger.Error("查询请求列表失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "请求列表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	for i, w := range exportColWidths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 表头
	for i, h := range exportHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(exportHeaders)-1), 1), headerStyle)
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	// 数据行
	for i := range items {
		row := i + 2
		for col, v := range exportRow(&items[i]) {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
	}

	// 3. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("技术支持请求_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func exportRow(tr *model.TechRequest) []interface{} {
	assignee := ""
	if tr.AssignedAdmin != nil {
		assignee = tr.AssignedAdmin.DisplayName
		if assignee == "" {
			assignee = tr.AssignedAdmin.Username
		}
	}
	return []interface{}{
		tr.ID,
		tr.FullName,
		tr.Phone,
		tr.Email,
		tr.Address,
		tr.ProblemDescription,
		tr.UrgencyLevel,
		tr.Status,
		assignee,
		deref(tr.ScheduledDate),
		deref(tr.ScheduledTime),
		deref(tr.Notes),
		tr.CreatedAt.Format("2006-01-02 15:04"),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
