package handler

import (
	"errors"

	"pingpong/internal/service"
	"pingpong/pkg/response"
	"pingpong/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// FriendHandler 好友关系处理器
type FriendHandler struct {
	service  *service.FriendService
	registry *websocket.Registry
}

// NewFriendHandler 创建FriendHandler实例
func NewFriendHandler(s *service.FriendService, registry *websocket.Registry) *FriendHandler {
	return &FriendHandler{service: s, registry: registry}
}

// SendRequest 发起好友请求
func (h *FriendHandler) SendRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	type req struct {
		ToUsername string `json:"to_username" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	info, err := h.service.SendRequest(userID, r.ToUsername)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, service.ErrAlreadyFriends), errors.Is(err, service.ErrDuplicatePending):
			response.Conflict(c, err.Error())
		case errors.Is(err, service.ErrSelfRequest):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, "发送好友请求失败")
		}
		return
	}

	response.SuccessWithMessage(c, "好友请求已发送", info)
}

// Respond 响应好友请求（接受/拒绝）
func (h *FriendHandler) Respond(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	type req struct {
		RequestID uint  `json:"request_id" binding:"required"`
		Accept    *bool `json:"accept" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	info, err := h.service.Respond(r.RequestID, userID, *r.Accept)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRequestNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, service.ErrNotResponder):
			response.Forbidden(c, err.Error())
		case errors.Is(err, service.ErrAlreadyResolved):
			response.Conflict(c, err.Error())
		default:
			response.InternalError(c, "响应好友请求失败")
		}
		return
	}

	response.SuccessWithMessage(c, "好友请求已处理", info)
}

// GetSummary 获取好友关系汇总：好友列表 + 收到/发出的待处理请求
func (h *FriendHandler) GetSummary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	friends, err := h.service.ListFriends(userID)
	if err != nil {
		response.InternalError(c, "获取好友列表失败")
		return
	}
	incoming, err := h.service.ListIncoming(userID)
	if err != nil {
		response.InternalError(c, "获取好友请求失败")
		return
	}
	outgoing, err := h.service.ListOutgoing(userID)
	if err != nil {
		response.InternalError(c, "获取好友请求失败")
		return
	}

	summary := &response.FriendSummaryResponse{
		Friends:          make([]response.FriendItem, 0, len(friends)),
		IncomingRequests: incoming,
		OutgoingRequests: outgoing,
	}
	for _, friend := range friends {
		summary.Friends = append(summary.Friends, response.FriendItem{
			ID:       friend.ID,
			Username: friend.Username,
			Online:   h.registry.IsOnline(friend.Username),
		})
	}

	response.SuccessWithMessage(c, "获取好友关系成功", summary)
}
