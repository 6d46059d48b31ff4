package service

import (
	"errors"
	"fmt"
	"strings"

	"pingpong/internal/model"
	"pingpong/internal/repository"
	"pingpong/pkg/response"
	"pingpong/pkg/websocket"

	"gorm.io/gorm"
)

// 历史查询条数限制
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
)

// MessageService 消息中继服务
// 发送路径：校验 -> 好友授权门 -> 持久化 -> 投递（回显发送方 + 尽力推送接收方）
// 持久化先于投递：存储失败中止整个发送，绝不出现"送达但没落库"
type MessageService struct {
	messageRepo *repository.MessageRepository
	userRepo    *repository.UserRepository
	friendSvc   *FriendService
	registry    *websocket.Registry
}

// NewMessageService 创建MessageService实例
func NewMessageService(
	messageRepo *repository.MessageRepository,
	userRepo *repository.UserRepository,
	friendSvc *FriendService,
	registry *websocket.Registry,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		friendSvc:   friendSvc,
		registry:    registry,
	}
}

// Authorize 解析目标用户并检查好友授权门
// 消息发送、文件分享、历史查询共用同一道门
func (s *MessageService) Authorize(fromID uint, toUsername string) (*model.User, error) {
	target, err := s.userRepo.GetByUsername(strings.TrimSpace(toUsername))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	friends, err := s.friendSvc.AreFriends(fromID, target.ID)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, ErrNotFriends
	}
	return target, nil
}

// SendText 发送文本消息
// 空文本（去除首尾空白后）视为"没有内容可发"，静默忽略、无任何副作用
// 接收方不在线时消息仍然落库，等待对方下次拉取历史
func (s *MessageService) SendText(from *model.User, toUsername, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	target, err := s.Authorize(from.ID, toUsername)
	if err != nil {
		return err
	}

	message := &model.Message{
		FromUserID: from.ID,
		ToUserID:   target.ID,
		Kind:       model.MessageKindText,
		Text:       text,
	}
	if err := s.messageRepo.Append(message); err != nil {
		return fmt.Errorf("save message failed: %w", err)
	}

	s.broadcast(from.Username, target.Username, websocket.ChatEvent(from.Username, text))
	return nil
}

// SendFile 发送文件消息（文件字节已由存储协作方保存，url为其返回的引用）
// Text 存原始文件名；返回推送给双方的file事件
func (s *MessageService) SendFile(from *model.User, toUsername, filename, url string) (websocket.Event, error) {
	target, err := s.Authorize(from.ID, toUsername)
	if err != nil {
		return websocket.Event{}, err
	}

	message := &model.Message{
		FromUserID: from.ID,
		ToUserID:   target.ID,
		Kind:       model.MessageKindFile,
		Text:       filename,
		URL:        url,
	}
	if err := s.messageRepo.Append(message); err != nil {
		return websocket.Event{}, fmt.Errorf("save message failed: %w", err)
	}

	event := websocket.FileEvent(from.Username, filename, url)
	s.broadcast(from.Username, target.Username, event)
	return event, nil
}

// History 获取与某个好友的消息历史（升序，原始时间戳）
// 非好友的查询直接拒绝，防止绕过授权门翻看任意用户对的历史
func (s *MessageService) History(from *model.User, friendUsername string, limit int) ([]*response.MessageItem, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	target, err := s.Authorize(from.ID, friendUsername)
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.Conversation(from.ID, target.ID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]*response.MessageItem, 0, len(messages))
	for _, m := range messages {
		items = append(items, response.FilterMessageItem(m, from, target))
	}
	return items, nil
}

// broadcast 编码事件并投递给双方：接收方在线则推送，发送方收到回显
// 两次投递互相独立、均为非阻塞尽力而为；失败不重试，持久化兜底
func (s *MessageService) broadcast(fromUsername, toUsername string, event websocket.Event) {
	payload, err := event.Encode()
	if err != nil {
		return
	}
	s.registry.Deliver(toUsername, payload)
	s.registry.Deliver(fromUsername, payload)
}
