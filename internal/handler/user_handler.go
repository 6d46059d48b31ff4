package handler

import (
	"errors"
	"strconv"

	"pingpong/internal/service"
	"pingpong/pkg/jwt"
	"pingpong/pkg/redis"
	"pingpong/pkg/response"
	"pingpong/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// UserHandler 账号处理器
type UserHandler struct {
	service  *service.UserService
	registry *websocket.Registry
}

// NewUserHandler 创建UserHandler实例
func NewUserHandler(s *service.UserService, registry *websocket.Registry) *UserHandler {
	return &UserHandler{service: s, registry: registry}
}

// currentUserID 从JWT上下文解析当前用户ID
func currentUserID(c *gin.Context) (uint, bool) {
	userID, err := strconv.ParseUint(jwt.GetUserID(c), 10, 32)
	if err != nil || userID == 0 {
		response.Unauthorized(c, "用户未认证")
		return 0, false
	}
	return uint(userID), true
}

// Register 用户注册
func (h *UserHandler) Register(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, token, err := h.service.Register(r.Username, r.Password)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			response.Conflict(c, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.SuccessWithMessage(c, "注册成功", &response.AuthResponse{
		User:        response.FilterUserInfo(user),
		AccessToken: token,
	})
}

// Login 用户登录
func (h *UserHandler) Login(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, token, err := h.service.Login(r.Username, r.Password)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	response.SuccessWithMessage(c, "登录成功", &response.AuthResponse{
		User:        response.FilterUserInfo(user),
		AccessToken: token,
	})
}

// GetProfile 获取用户资料（需要JWT认证）
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := jwt.GetUserID(c)
	username := jwt.GetUsername(c)

	response.Success(c, gin.H{
		"user_id":  userID,
		"username": username,
		"online":   h.registry.IsOnline(username),
	})
}

// Logout 用户登出（需要JWT认证）：仅更新在线状态为offline
func (h *UserHandler) Logout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.service.Logout(userID); err != nil {
		response.InternalError(c, "登出失败")
		return
	}
	response.SuccessWithMessage(c, "已离线", nil)
}

// GetOnlineUsers 获取在线用户列表（需要JWT认证）
// 以进程内连接注册表为准，Redis仅补充最近在线时间等细节
func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	usernames := h.registry.OnlineUsers()

	onlineUsers := make([]gin.H, 0, len(usernames))
	for _, username := range usernames {
		item := gin.H{
			"username": username,
			"online":   true,
		}
		if presence, err := redis.GetUserPresence(username); err == nil {
			item["last_seen"] = presence.LastSeen.Format("2006-01-02 15:04:05")
		}
		onlineUsers = append(onlineUsers, item)
	}

	response.SuccessWithMessage(c, "获取在线用户成功", gin.H{
		"online_count": len(onlineUsers),
		"users":        onlineUsers,
	})
}

// CheckUserOnline 检查指定用户是否在线（需要JWT认证）
func (h *UserHandler) CheckUserOnline(c *gin.Context) {
	username := c.Param("username")
	if username == "" {
		response.BadRequest(c, "username is required")
		return
	}

	online := h.registry.IsOnline(username)
	result := gin.H{
		"username": username,
		"online":   online,
	}
	if presence, err := redis.GetUserPresence(username); err == nil {
		result["last_seen"] = presence.LastSeen.Format("2006-01-02 15:04:05")
		result["connected"] = presence.Connected
	}

	response.SuccessWithMessage(c, "检查用户在线状态成功", result)
}
