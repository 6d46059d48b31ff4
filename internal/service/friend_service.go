package service

import (
	"errors"
	"strings"
	"sync"

	"pingpong/internal/model"
	"pingpong/internal/repository"
	"pingpong/pkg/response"

	"gorm.io/gorm"
)

// FriendService 好友关系服务（好友请求状态机）
// mu 把"查重+插入"/"校验+置终态"收敛为单个逻辑操作：
// 并发SendRequest不会为同一对用户留下两条pending请求
type FriendService struct {
	friendRepo *repository.FriendRepository
	userRepo   *repository.UserRepository
	mu         sync.Mutex
}

// NewFriendService 创建FriendService实例
func NewFriendService(friendRepo *repository.FriendRepository, userRepo *repository.UserRepository) *FriendService {
	return &FriendService{friendRepo: friendRepo, userRepo: userRepo}
}

// SendRequest 发起好友请求
// 失败情形：目标不存在 / 加自己 / 已是好友 / 已有pending请求（任一方向）
// 被拒绝过的用户对允许重新发起请求
func (s *FriendService) SendRequest(fromID uint, toUsername string) (*response.FriendRequestInfo, error) {
	toUsername = strings.TrimSpace(toUsername)
	target, err := s.userRepo.GetByUsername(toUsername)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if target.ID == fromID {
		return nil, ErrSelfRequest
	}
	from, err := s.userRepo.GetByID(fromID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	friends, err := s.friendRepo.AreFriends(fromID, target.ID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	pending, err := s.friendRepo.GetPendingBetween(fromID, target.ID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrDuplicatePending
	}

	req := &model.FriendRequest{
		FromUserID: fromID,
		ToUserID:   target.ID,
		Status:     model.FriendStatusPending,
	}
	if err := s.friendRepo.Create(req); err != nil {
		return nil, err
	}

	return &response.FriendRequestInfo{
		ID:           req.ID,
		FromUsername: from.Username,
		ToUsername:   target.Username,
		Status:       req.Status,
	}, nil
}

// Respond 响应好友请求（接受/拒绝）
// 只有请求的接收方可以响应；pending是唯一可响应状态，终态不可重复响应
// 该转移是好友关系的唯一写路径
func (s *FriendService) Respond(requestID, responderID uint, accept bool) (*response.FriendRequestInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.friendRepo.GetByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.ToUserID != responderID {
		return nil, ErrNotResponder
	}
	if req.Status != model.FriendStatusPending {
		return nil, ErrAlreadyResolved
	}

	// 状态转移前取齐双方用户名：转移提交后不再有可失败的读
	from, err := s.userRepo.GetByID(req.FromUserID)
	if err != nil {
		return nil, err
	}
	to, err := s.userRepo.GetByID(req.ToUserID)
	if err != nil {
		return nil, err
	}

	status := model.FriendStatusRejected
	if accept {
		status = model.FriendStatusAccepted
	}
	affected, err := s.friendRepo.Resolve(requestID, status)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// 并发响应竞争失败：请求已被置为终态
		return nil, ErrAlreadyResolved
	}

	return &response.FriendRequestInfo{
		ID:           req.ID,
		FromUsername: from.Username,
		ToUsername:   to.Username,
		Status:       status,
	}, nil
}

// AreFriends 判断两个用户是否为好友（消息发送与历史查询的授权门）
func (s *FriendService) AreFriends(aID, bID uint) (bool, error) {
	return s.friendRepo.AreFriends(aID, bID)
}

// ListFriends 列出该用户的好友（accepted请求的对端用户名集合）
func (s *FriendService) ListFriends(userID uint) ([]*model.User, error) {
	accepted, err := s.friendRepo.ListAccepted(userID)
	if err != nil {
		return nil, err
	}

	friends := make([]*model.User, 0, len(accepted))
	for _, req := range accepted {
		otherID := req.FromUserID
		if otherID == userID {
			otherID = req.ToUserID
		}
		other, err := s.userRepo.GetByID(otherID)
		if err != nil {
			return nil, err
		}
		friends = append(friends, other)
	}
	return friends, nil
}

// ListIncoming 列出发给该用户的pending请求
func (s *FriendService) ListIncoming(userID uint) ([]response.IncomingRequestItem, error) {
	reqs, err := s.friendRepo.ListIncomingPending(userID)
	if err != nil {
		return nil, err
	}

	items := make([]response.IncomingRequestItem, 0, len(reqs))
	for _, req := range reqs {
		from, err := s.userRepo.GetByID(req.FromUserID)
		if err != nil {
			return nil, err
		}
		items = append(items, response.IncomingRequestItem{
			RequestID:    req.ID,
			FromUsername: from.Username,
		})
	}
	return items, nil
}

// ListOutgoing 列出该用户发出的pending请求
func (s *FriendService) ListOutgoing(userID uint) ([]response.OutgoingRequestItem, error) {
	reqs, err := s.friendRepo.ListOutgoingPending(userID)
	if err != nil {
		return nil, err
	}

	items := make([]response.OutgoingRequestItem, 0, len(reqs))
	for _, req := range reqs {
		to, err := s.userRepo.GetByID(req.ToUserID)
		if err != nil {
			return nil, err
		}
		items = append(items, response.OutgoingRequestItem{
			RequestID:  req.ID,
			ToUsername: to.Username,
			Status:     req.Status,
		})
	}
	return items, nil
}
