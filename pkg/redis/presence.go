package redis

import (
	"encoding/json"
	"fmt"
	"time"
)

// PresenceData 在线状态数据
// 仅作为跨组件可观测的镜像：投递判断始终以进程内连接注册表为准
type PresenceData struct {
	Username  string    `json:"username"`
	Status    string    `json:"status"` // online/offline
	LastSeen  time.Time `json:"last_seen"`
	Connected bool      `json:"connected"` // 是否有活跃连接
}

// 在线状态相关常量
const (
	PresenceKeyPrefix = "pingpong:presence:user:" // 用户在线状态key前缀
	OnlineUsersKey    = "pingpong:online:users"   // 在线用户集合key
	PresenceTTL       = 2 * time.Minute           // 在线状态TTL（2倍心跳周期）
)

// SetUserPresence 设置用户在线状态
func SetUserPresence(username string, status string) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	key := PresenceKeyPrefix + username

	presence := PresenceData{
		Username:  username,
		Status:    status,
		LastSeen:  time.Now(),
		Connected: status == "online",
	}

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("序列化在线状态失败: %w", err)
	}

	// 设置用户状态，带TTL
	if err := Set(key, data, PresenceTTL); err != nil {
		return fmt.Errorf("设置用户在线状态失败: %w", err)
	}

	// 更新在线用户集合
	if status == "online" {
		err = client.SAdd(ctx, OnlineUsersKey, username).Err()
	} else {
		err = client.SRem(ctx, OnlineUsersKey, username).Err()
	}
	if err != nil {
		return fmt.Errorf("更新在线用户集合失败: %w", err)
	}

	return nil
}

// GetUserPresence 获取用户在线状态
func GetUserPresence(username string) (*PresenceData, error) {
	if client == nil {
		return nil, fmt.Errorf("redis客户端未初始化")
	}

	data, err := Get(PresenceKeyPrefix + username)
	if err != nil {
		return nil, fmt.Errorf("获取用户在线状态失败: %w", err)
	}

	var presence PresenceData
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("解析在线状态失败: %w", err)
	}
	return &presence, nil
}

// RefreshUserPresence 刷新用户在线状态TTL（心跳续期）
func RefreshUserPresence(username string) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return Expire(PresenceKeyPrefix+username, PresenceTTL)
}
