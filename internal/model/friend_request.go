package model

import "time"

// 好友请求状态
const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
	FriendStatusRejected = "rejected"
)

// FriendRequest 好友请求
// 状态机：pending -> accepted / pending -> rejected，均为终态
// 同一对用户（不分方向）同时最多存在一条 pending 请求，由服务层保证
// accepted 即为好友关系（双向），不再区分方向

type FriendRequest struct {
	ID          uint       `gorm:"primaryKey"`
	FromUserID  uint       `gorm:"not null;index;comment:发起方用户ID"`
	ToUserID    uint       `gorm:"not null;index;comment:接收方用户ID"`
	Status      string     `gorm:"type:varchar(32);not null;default:'pending';comment:请求状态"`
	RespondedAt *time.Time `gorm:"comment:响应时间"`
	CreatedAt   time.Time  `gorm:"comment:创建时间"`
	UpdatedAt   time.Time  `gorm:"comment:更新时间"`
}

func (FriendRequest) TableName() string { return "friend_request" }
