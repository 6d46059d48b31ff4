package repository

import (
	"sync"
	"time"

	"pingpong/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 消息数据仓储（只追加的历史存储）
// Append 在写入时赋值CreatedAt，使用单调不回退时钟：
// 同一进程内两次追加的CreatedAt不会倒退，排序稳定
type MessageRepository struct {
	db *gorm.DB

	clock  sync.Mutex
	lastAt time.Time
}

// NewMessageRepository 创建MessageRepository实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append 追加一条消息
// 单次调用原子：写入失败不留下可见的半截记录
func (r *MessageRepository) Append(message *model.Message) error {
	r.clock.Lock()
	defer r.clock.Unlock()

	now := time.Now()
	if now.Before(r.lastAt) {
		now = r.lastAt
	}
	r.lastAt = now
	message.CreatedAt = now

	return r.db.Create(message).Error
}

// Conversation 获取两个用户之间（不分方向）的消息
// 按 created_at 升序，created_at 相同时按 id 升序兜底
func (r *MessageRepository) Conversation(aID, bID uint, limit int) ([]*model.Message, error) {
	var messages []*model.Message

	query := r.db.Where(
		"(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
		aID, bID, bID, aID,
	).Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&messages).Error
	return messages, err
}
