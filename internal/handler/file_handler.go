package handler

import (
	"errors"

	"pingpong/config"
	"pingpong/internal/service"
	"pingpong/pkg/response"
	"pingpong/pkg/storage"

	"github.com/gin-gonic/gin"
)

// FileHandler 文件分享处理器
// 文件字节交给存储协作方保存，消息中继只记录引用
type FileHandler struct {
	service   *service.MessageService
	store     *storage.LocalStore
	maxSizeMB int64
}

// NewFileHandler 创建FileHandler实例
func NewFileHandler(s *service.MessageService, store *storage.LocalStore, cfg config.StorageConfig) *FileHandler {
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 20
	}
	return &FileHandler{service: s, store: store, maxSizeMB: maxSize}
}

// Upload 上传文件给好友
// multipart字段：file（文件）、to_username（接收方）
// 流程：好友授权门 -> 保存文件字节 -> 落库file消息 -> 推送双方
// 授权失败在保存任何字节之前就拒绝
func (h *FileHandler) Upload(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}

	toUsername := c.PostForm("to_username")
	if toUsername == "" {
		response.BadRequest(c, "to_username is required")
		return
	}

	// 先过授权门，再碰文件字节
	if _, err := h.service.Authorize(me.ID, toUsername); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, service.ErrNotFriends):
			response.Forbidden(c, err.Error())
		default:
			response.InternalError(c, "文件上传失败")
		}
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > h.maxSizeMB*1024*1024 {
		response.BadRequest(c, "file too large")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, "文件读取失败")
		return
	}
	defer src.Close()

	url, err := h.store.Save(fileHeader.Filename, src)
	if err != nil {
		response.InternalError(c, "文件保存失败")
		return
	}

	event, err := h.service.SendFile(me, toUsername, h.store.DisplayName(fileHeader.Filename), url)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFriends):
			response.Forbidden(c, err.Error())
		default:
			response.InternalError(c, "文件消息保存失败")
		}
		return
	}

	response.SuccessWithMessage(c, "文件上传成功", &response.FileUploadResponse{
		Type:     event.Type,
		From:     event.From,
		Filename: event.Filename,
		URL:      event.URL,
	})
}
