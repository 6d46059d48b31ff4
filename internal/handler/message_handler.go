package handler

import (
	"errors"
	"strconv"

	"pingpong/internal/model"
	"pingpong/internal/service"
	"pingpong/pkg/jwt"
	"pingpong/pkg/response"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息历史处理器
type MessageHandler struct {
	service *service.MessageService
}

// NewMessageHandler 创建MessageHandler实例
func NewMessageHandler(s *service.MessageService) *MessageHandler {
	return &MessageHandler{service: s}
}

// currentUser 从JWT上下文还原当前用户（ID + 用户名）
func currentUser(c *gin.Context) (*model.User, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}
	return &model.User{ID: userID, Username: jwt.GetUsername(c)}, true
}

// GetConversationMessages 获取与指定好友的消息历史
// 仅允许查询好友对：非好友请求被授权门拒绝
func (h *MessageHandler) GetConversationMessages(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}

	friendUsername := c.Param("username")
	if friendUsername == "" {
		response.BadRequest(c, "username is required")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		limit = service.DefaultHistoryLimit
	}

	messages, err := h.service.History(me, friendUsername, limit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, service.ErrNotFriends):
			response.Forbidden(c, err.Error())
		default:
			response.InternalError(c, "获取消息历史失败")
		}
		return
	}

	response.SuccessWithMessage(c, "获取消息历史成功", messages)
}
