package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	pkgerrors "tech-visit/backend/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFromError_KindMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"not found", pkgerrors.New(pkgerrors.KindNotFound, 21001, "时间段不存在"), http.StatusNotFound, 21001},
		{"conflict", fmt.Errorf("wrap: %w", pkgerrors.New(pkgerrors.KindConflict, 21002, "时间段已被预约")), http.StatusConflict, 21002},
		{"forbidden", pkgerrors.New(pkgerrors.KindForbidden, 20003, "无权修改字段"), http.StatusForbidden, 20003},
		{"validation", pkgerrors.New(pkgerrors.KindValidation, 21005, "日期格式无效"), http.StatusBadRequest, 21005},
		{"internal", errors.New("db down"), http.StatusInternalServerError, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			FromError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("期望 HTTP %d，实际=%d", tt.wantStatus, w.Code)
			}
			var resp Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("解析响应失败: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("期望业务码 %d，实际=%d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestFromError_CarriesFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := pkgerrors.New(pkgerrors.KindForbidden, 20003, "无权修改字段").WithFields("full_name")
	FromError(c, err)

	var resp Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Fields) != 1 || resp.Fields[0] != "full_name" {
		t.Errorf("期望 fields=[full_name]，实际=%v", resp.Fields)
	}
}

func TestOKPage_TotalPages(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OKPage(c, []int{1, 2}, 21, 1, 10)

	var raw struct {
		Data PageData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &raw)
	if raw.Data.Pagination.TotalPages != 3 {
		t.Errorf("期望 total_pages=3，实际=%d", raw.Data.Pagination.TotalPages)
	}
}
