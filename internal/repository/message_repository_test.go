package repository

import (
	"fmt"
	"sync/atomic"
	"testing"

	"pingpong/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

// newTestDB 为每个测试创建独立的内存SQLite数据库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.FriendRequest{}, &model.Message{}))
	return db
}

func TestMessageAppendAssignsMonotonicTimestamps(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t))

	var prev *model.Message
	for i := 0; i < 10; i++ {
		m := &model.Message{FromUserID: 1, ToUserID: 2, Kind: model.MessageKindText, Text: fmt.Sprintf("msg %d", i)}
		require.NoError(t, repo.Append(m))
		if prev != nil {
			assert.False(t, m.CreatedAt.Before(prev.CreatedAt), "created_at must not go backward")
		}
		prev = m
	}
}

func TestMessageConversationOrderAndPairFilter(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t))

	// 两个方向的消息属于同一会话；无关用户对的消息不可见
	require.NoError(t, repo.Append(&model.Message{FromUserID: 1, ToUserID: 2, Kind: model.MessageKindText, Text: "a->b"}))
	require.NoError(t, repo.Append(&model.Message{FromUserID: 2, ToUserID: 1, Kind: model.MessageKindText, Text: "b->a"}))
	require.NoError(t, repo.Append(&model.Message{FromUserID: 1, ToUserID: 3, Kind: model.MessageKindText, Text: "a->c"}))

	messages, err := repo.Conversation(1, 2, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "a->b", messages[0].Text)
	assert.Equal(t, "b->a", messages[1].Text)

	// 参数顺序无关：{1,2}与{2,1}是同一个无序对
	reversed, err := repo.Conversation(2, 1, 0)
	require.NoError(t, err)
	require.Len(t, reversed, 2)
	assert.Equal(t, messages[0].ID, reversed[0].ID)
}

func TestMessageConversationAscendingWithIDTieBreak(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t))

	for i := 0; i < 20; i++ {
		require.NoError(t, repo.Append(&model.Message{
			FromUserID: 1, ToUserID: 2,
			Kind: model.MessageKindText,
			Text: fmt.Sprintf("msg %d", i),
		}))
	}

	messages, err := repo.Conversation(1, 2, 0)
	require.NoError(t, err)
	require.Len(t, messages, 20)
	for i := 1; i < len(messages); i++ {
		cur, before := messages[i], messages[i-1]
		assert.False(t, cur.CreatedAt.Before(before.CreatedAt))
		if cur.CreatedAt.Equal(before.CreatedAt) {
			assert.Greater(t, cur.ID, before.ID, "equal timestamps must be ordered by id")
		}
	}

	// 重复查询结果一致（幂等）
	again, err := repo.Conversation(1, 2, 0)
	require.NoError(t, err)
	require.Len(t, again, 20)
	for i := range messages {
		assert.Equal(t, messages[i].ID, again[i].ID)
	}
}

func TestMessageConversationLimit(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t))

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(&model.Message{FromUserID: 1, ToUserID: 2, Kind: model.MessageKindText, Text: "x"}))
	}

	messages, err := repo.Conversation(1, 2, 3)
	require.NoError(t, err)
	assert.Len(t, messages, 3)
}
