package repository

import (
	"errors"
	"time"

	"pingpong/internal/model"

	"gorm.io/gorm"
)

// FriendRepository 好友请求数据仓储
type FriendRepository struct {
	db *gorm.DB
}

// NewFriendRepository 创建FriendRepository实例
func NewFriendRepository(db *gorm.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

// Create 创建好友请求
func (r *FriendRepository) Create(req *model.FriendRequest) error {
	return r.db.Create(req).Error
}

// GetByID 根据ID获取好友请求
func (r *FriendRepository) GetByID(id uint) (*model.FriendRequest, error) {
	var req model.FriendRequest
	if err := r.db.First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// GetPendingBetween 查找两个用户之间（不分方向）的pending请求
func (r *FriendRepository) GetPendingBetween(aID, bID uint) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.db.Where(
		"status = ? AND ((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))",
		model.FriendStatusPending, aID, bID, bID, aID,
	).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// AreFriends 判断两个用户是否为好友（任一方向存在accepted请求）
func (r *FriendRepository) AreFriends(aID, bID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.FriendRequest{}).
		Where(
			"status = ? AND ((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))",
			model.FriendStatusAccepted, aID, bID, bID, aID,
		).Count(&count).Error
	return count > 0, err
}

// Resolve 将pending请求置为终态，返回实际生效的行数
// WHERE带status=pending条件：并发重复响应时只有一次成功
func (r *FriendRepository) Resolve(id uint, status string) (int64, error) {
	now := time.Now()
	result := r.db.Model(&model.FriendRequest{}).
		Where("id = ? AND status = ?", id, model.FriendStatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"responded_at": &now,
		})
	return result.RowsAffected, result.Error
}

// ListAccepted 列出用户的所有accepted请求（任一方向）
func (r *FriendRepository) ListAccepted(userID uint) ([]*model.FriendRequest, error) {
	var reqs []*model.FriendRequest
	err := r.db.Where(
		"status = ? AND (from_user_id = ? OR to_user_id = ?)",
		model.FriendStatusAccepted, userID, userID,
	).Find(&reqs).Error
	return reqs, err
}

// ListIncomingPending 列出发给该用户的pending请求
func (r *FriendRepository) ListIncomingPending(userID uint) ([]*model.FriendRequest, error) {
	var reqs []*model.FriendRequest
	err := r.db.Where(
		"status = ? AND to_user_id = ?",
		model.FriendStatusPending, userID,
	).Order("created_at ASC").Find(&reqs).Error
	return reqs, err
}

// ListOutgoingPending 列出该用户发出的pending请求
func (r *FriendRepository) ListOutgoingPending(userID uint) ([]*model.FriendRequest, error) {
	var reqs []*model.FriendRequest
	err := r.db.Where(
		"status = ? AND from_user_id = ?",
		model.FriendStatusPending, userID,
	).Order("created_at ASC").Find(&reqs).Error
	return reqs, err
}
