package nostd

import (
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// AttachmentName 导出文件名，如 alpha_points_2025-06-20.csv
func AttachmentName(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.UTC().Format("2006-01-02"), strings.TrimPrefix(ext, "."))
}

// QueryBool "1"、"true"、"desc" 视为 true
func QueryBool(c echo.Context, name string) bool {
	switch strings.ToLower(c.QueryParam(name)) {
	case "1", "true", "yes", "desc":
		return true
	default:
		return false
	}
}
