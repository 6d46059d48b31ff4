package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pingpong/config"
	"pingpong/internal/model"
	"pingpong/internal/repository"
	"pingpong/internal/service"
	"pingpong/pkg/jwt"
	"pingpong/pkg/logger"
	"pingpong/pkg/redis"
	"pingpong/pkg/response"
	ws "pingpong/pkg/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// WSHandler WebSocket连接处理器
// 每条连接一个读协程（本函数）+ 一个写协程（Client.WritePump）
// 连接状态机：建立 -> 认证 -> 注册 -> 消息循环 -> 注销
type WSHandler struct {
	jwtSvc     *jwt.JWTService
	userRepo   *repository.UserRepository
	messageSvc *service.MessageService
	registry   *ws.Registry
	cfg        config.WebSocketConfig
}

// NewWSHandler 创建WSHandler实例
func NewWSHandler(
	jwtSvc *jwt.JWTService,
	userRepo *repository.UserRepository,
	messageSvc *service.MessageService,
	registry *ws.Registry,
	cfg config.WebSocketConfig,
) *WSHandler {
	return &WSHandler{
		jwtSvc:     jwtSvc,
		userRepo:   userRepo,
		messageSvc: messageSvc,
		registry:   registry,
		cfg:        cfg,
	}
}

// Handle Gin路由处理函数
func (h *WSHandler) Handle(c *gin.Context) {
	// 认证先于升级：token无效的连接不产生任何注册表副作用
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Sec-WebSocket-Protocol"), "Bearer ")
	}
	if token == "" {
		response.Unauthorized(c, "缺少token")
		return
	}

	claims, err := h.jwtSvc.ValidateToken(token)
	if err != nil {
		response.Unauthorized(c, "token无效或已过期")
		return
	}
	userID, _ := strconv.ParseUint(claims.Subject, 10, 32)
	if userID == 0 {
		response.Unauthorized(c, "token无效")
		return
	}
	user, err := h.userRepo.GetByID(uint(userID))
	if err != nil {
		response.Unauthorized(c, "用户不存在")
		return
	}

	// 回显子协议，避免客户端提示 "Server sent no subprotocol"
	respHeader := http.Header{}
	if protocol := c.GetHeader("Sec-WebSocket-Protocol"); protocol != "" {
		respHeader.Set("Sec-WebSocket-Protocol", protocol)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		return
	}

	client := ws.NewClient(user.Username, conn, h.cfg.SendBuffer)
	h.registry.Register(user.Username, client)
	logger.Info("WebSocket连接建立", zap.String("username", user.Username))

	// 连接建立后置为online（数据库状态 + Redis镜像）
	_ = h.userRepo.UpdateStatus(user.ID, "online")
	if err := redis.SetUserPresence(user.Username, "online"); err != nil {
		logger.Debug("更新Redis在线状态失败", zap.Error(err))
	}

	defer func() {
		// 仅当当前注册的还是本连接时才注销（防止顶号后误删新连接）
		h.registry.Unregister(user.Username, client)
		client.Close()

		if !h.registry.IsOnline(user.Username) {
			_ = h.userRepo.UpdateStatus(user.ID, "offline")
			if err := redis.SetUserPresence(user.Username, "offline"); err != nil {
				logger.Debug("更新Redis在线状态失败", zap.Error(err))
			}
			// 写offline期间可能恰好有新连接完成注册：复查并恢复online
			if h.registry.IsOnline(user.Username) {
				_ = h.userRepo.UpdateStatus(user.ID, "online")
				if err := redis.SetUserPresence(user.Username, "online"); err != nil {
					logger.Debug("更新Redis在线状态失败", zap.Error(err))
				}
			}
		}
		logger.Info("WebSocket连接关闭", zap.String("username", user.Username))
	}()

	// 启动写协程 + 定时发送ping心跳
	go client.WritePump(h.cfg.PingInterval)

	h.deliverEvent(client, ws.SystemEvent("Connected as "+user.Username))

	// 读循环（本连接的工作协程）：读超时未收到任何数据则断开
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(appData string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))

		var event ws.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			h.deliverEvent(client, ws.ErrorEvent("Invalid message payload."))
			continue
		}

		switch event.Type {
		case ws.EventChat:
			h.handleChat(client, user, event)
		case ws.EventHeartbeat:
			// 刷新用户在线状态（延长TTL）
			_ = redis.RefreshUserPresence(user.Username)
			_ = h.userRepo.UpdateStatus(user.ID, "online")
		default:
			h.deliverEvent(client, ws.SystemEvent("Unsupported message type."))
		}
	}
}

// handleChat 处理一条定向聊天事件
// 校验/授权/存储错误只反馈给发起方本连接，不影响其他用户
func (h *WSHandler) handleChat(client *ws.Client, user *model.User, event ws.Event) {
	err := h.messageSvc.SendText(user, event.To, event.Text)
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNotFriends):
		h.deliverEvent(client, ws.ErrorEvent(err.Error()))
	default:
		// 存储失败：发送已中止、未投递，提示发送方可重试
		logger.Error("消息持久化失败",
			zap.String("from", user.Username),
			zap.String("to", event.To),
			zap.Error(err),
		)
		h.deliverEvent(client, ws.ErrorEvent("Message could not be saved, please retry."))
	}
}

// deliverEvent 向本连接投递一个事件（尽力而为）
func (h *WSHandler) deliverEvent(client *ws.Client, event ws.Event) {
	if payload, err := event.Encode(); err == nil {
		client.Deliver(payload)
	}
}
