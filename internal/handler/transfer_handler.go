package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dushixiang/alpha/internal/service"
	"github.com/dushixiang/alpha/internal/xe"
	"github.com/dushixiang/alpha/pkg/nostd"
	"github.com/go-orz/orz"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	mimeCSV  = "text/csv; charset=utf-8"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	exportPrefix = "alpha_points"
)

// TransferHandler 导入导出
type TransferHandler struct {
	logger         *zap.Logger
	accountService *service.AccountService
}

func NewTransferHandler(logger *zap.Logger, accountService *service.AccountService) *TransferHandler {
	return &TransferHandler{
		logger:         logger,
		accountService: accountService,
	}
}

// upload 支持 multipart 的 file 字段，或者直接把文件作为请求体
func upload(c echo.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: file is required", xe.ErrInvalidParams)
		}
		return fh.Open()
	}
	return c.Request().Body, nil
}

// ImportCSV POST /api/import/csv
func (h *TransferHandler) ImportCSV(c echo.Context) error {
	body, err := upload(c)
	if err != nil {
		return err
	}
	defer body.Close()

	result, err := h.accountService.ImportCSV(c.Request().Context(), body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ImportJSON 替换全部账户
// POST /api/import/json
func (h *TransferHandler) ImportJSON(c echo.Context) error {
	body, err := upload(c)
	if err != nil {
		return err
	}
	defer body.Close()

	n, err := h.accountService.ImportJSON(c.Request().Context(), body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orz.Map{"accounts": n})
}

// export 先写入缓冲区，出错时还能返回 JSON 错误
func (h *TransferHandler) export(c echo.Context, ext, contentType string, write func(w io.Writer, id string) error) error {
	id := c.Param("id")
	prefix := exportPrefix
	if id != "" {
		a, err := findAccount(h.accountService.Registry(), id)
		if err != nil {
			return err
		}
		prefix = exportPrefix + "_" + a.Name
	}

	var buf bytes.Buffer
	if err := write(&buf, id); err != nil {
		return err
	}
	filename := nostd.AttachmentName(prefix, ext, h.accountService.Registry().Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

// ExportCSV GET /api/export/csv, /api/accounts/:id/export/csv
func (h *TransferHandler) ExportCSV(c echo.Context) error {
	return h.export(c, "csv", mimeCSV, h.accountService.ExportCSV)
}

// ExportJSON GET /api/export/json, /api/accounts/:id/export/json
func (h *TransferHandler) ExportJSON(c echo.Context) error {
	return h.export(c, "json", echo.MIMEApplicationJSONCharsetUTF8, h.accountService.ExportJSON)
}

// ExportXLSX GET /api/export/xlsx, /api/accounts/:id/export/xlsx
func (h *TransferHandler) ExportXLSX(c echo.Context) error {
	return h.export(c, "xlsx", mimeXLSX, h.accountService.ExportXLSX)
}

// RegisterRoutes 注册路由
func (h *TransferHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/import/csv", h.ImportCSV)
	g.POST("/import/json", h.ImportJSON)

	g.GET("/export/csv", h.ExportCSV)
	g.GET("/export/json", h.ExportJSON)
	g.GET("/export/xlsx", h.ExportXLSX)

	g.GET("/accounts/:id/export/csv", h.ExportCSV)
	g.GET("/accounts/:id/export/json", h.ExportJSON)
	g.GET("/accounts/:id/export/xlsx", h.ExportXLSX)
}
