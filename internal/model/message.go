package model

import "time"

// 消息类型
const (
	MessageKindText = "text"
	MessageKindFile = "file"
)

// Message 消息模型
// Kind: text-文本 file-文件
// 文件消息：Text 存原始文件名，URL 存可下载的文件引用
// 消息创建后不可变：只追加，无更新/删除路径
// CreatedAt 由仓储层在写入时赋值（单调不回退时钟）

type Message struct {
	ID         uint      `gorm:"primaryKey"`
	FromUserID uint      `gorm:"not null;index;comment:发送者ID"`
	ToUserID   uint      `gorm:"not null;index;comment:接收者ID"`
	Kind       string    `gorm:"type:varchar(32);not null;default:'text';comment:消息类型"`
	Text       string    `gorm:"type:text;not null;comment:消息内容或文件名"`
	URL        string    `gorm:"type:varchar(255);comment:文件引用(仅文件消息)"`
	CreatedAt  time.Time `gorm:"index;comment:创建时间"`
}

func (Message) TableName() string { return "message" }
