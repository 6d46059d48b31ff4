package response

import (
	"net/http"

	"pingpong/internal/model"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`            // 状态码：0表示成功，其他表示错误
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据
	Error   string      `json:"error,omitempty"` // 错误详情（仅在开发环境显示）
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, 400, message)
}

// Unauthorized 401错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, 401, message)
}

// Forbidden 403错误
func Forbidden(c *gin.Context, message string) {
	Error(c, 403, message)
}

// NotFound 404错误
func NotFound(c *gin.Context, message string) {
	Error(c, 404, message)
}

// Conflict 409错误
func Conflict(c *gin.Context, message string) {
	Error(c, 409, message)
}

// InternalError 500错误
func InternalError(c *gin.Context, message string) {
	Error(c, 500, message)
}

// UserInfo 用户信息（隐藏敏感字段）
type UserInfo struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Status    string `json:"status"`
	LastSeen  string `json:"last_seen"`
	CreatedAt string `json:"created_at"`
}

// FilterUserInfo 过滤用户信息，隐藏敏感字段
func FilterUserInfo(user *model.User) *UserInfo {
	if user == nil {
		return nil
	}

	return &UserInfo{
		ID:        user.ID,
		Username:  user.Username,
		Status:    user.Status,
		LastSeen:  user.LastSeen.Format("2006-01-02 15:04:05"),
		CreatedAt: user.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// AuthResponse 注册/登录响应
type AuthResponse struct {
	User        *UserInfo `json:"user"`
	AccessToken string    `json:"access_token"`
}

// FriendRequestInfo 好友请求信息
type FriendRequestInfo struct {
	ID           uint   `json:"id"`
	FromUsername string `json:"from_username"`
	ToUsername   string `json:"to_username"`
	Status       string `json:"status"`
}

// FriendItem 好友列表项
type FriendItem struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// IncomingRequestItem 收到的待处理请求
type IncomingRequestItem struct {
	RequestID    uint   `json:"request_id"`
	FromUsername string `json:"from_username"`
}

// OutgoingRequestItem 发出的待处理请求
type OutgoingRequestItem struct {
	RequestID  uint   `json:"request_id"`
	ToUsername string `json:"to_username"`
	Status     string `json:"status"`
}

// FriendSummaryResponse 好友关系汇总
type FriendSummaryResponse struct {
	Friends          []FriendItem          `json:"friends"`
	IncomingRequests []IncomingRequestItem `json:"incoming_requests"`
	OutgoingRequests []OutgoingRequestItem `json:"outgoing_requests"`
}

// MessageItem 消息条目（按用户名对外呈现）
type MessageItem struct {
	ID           uint   `json:"id"`
	FromUsername string `json:"from_username"`
	ToUsername   string `json:"to_username"`
	Kind         string `json:"kind"`
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// FilterMessageItem 将消息模型映射为对外条目
// 消息仅涉及会话双方，按发送者ID还原用户名
func FilterMessageItem(m *model.Message, a, b *model.User) *MessageItem {
	if m == nil {
		return nil
	}

	fromName, toName := a.Username, b.Username
	if m.FromUserID == b.ID {
		fromName, toName = b.Username, a.Username
	}

	return &MessageItem{
		ID:           m.ID,
		FromUsername: fromName,
		ToUsername:   toName,
		Kind:         m.Kind,
		Text:         m.Text,
		URL:          m.URL,
		CreatedAt:    m.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// FileUploadResponse 文件上传响应（与WebSocket file事件同构）
type FileUploadResponse struct {
	Type     string `json:"type"`
	From     string `json:"from"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}
