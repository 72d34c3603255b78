package handler

import (
	"net/http"
	"time"

	"github.com/dushixiang/alpha/internal/ledger"
	"github.com/dushixiang/alpha/internal/service"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = 2 * pingPeriod
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamHandler 通过 websocket 推送账户变化
type StreamHandler struct {
	logger         *zap.Logger
	accountService *service.AccountService
}

func NewStreamHandler(logger *zap.Logger, accountService *service.AccountService) *StreamHandler {
	return &StreamHandler{
		logger:         logger,
		accountService: accountService,
	}
}

// Stream 连接后先推送一次完整状态，之后每次修改推送最新状态
// GET /api/stream
func (h *StreamHandler) Stream(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade 已经写回了错误响应
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer ws.Close()

	registry := h.accountService.Registry()

	// 只保留最新一份状态，慢连接不会阻塞修改方
	updates := make(chan ledger.State, 1)
	unsubscribe := registry.Subscribe(func(state ledger.State) {
		for {
			select {
			case updates <- state:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		ws.SetReadLimit(512)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := h.write(ws, registry.State()); err != nil {
		return nil
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case state := <-updates:
			if err := h.write(ws, state); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return nil
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		case <-closed:
			return nil
		case <-c.Request().Context().Done():
			return nil
		}
	}
}

func (h *StreamHandler) write(ws *websocket.Conn, state ledger.State) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(state)
}

// RegisterRoutes 注册路由
func (h *StreamHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/stream", h.Stream)
}
