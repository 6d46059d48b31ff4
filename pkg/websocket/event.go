package websocket

import "encoding/json"

// 事件类型（JSON载荷中的type字段）
const (
	EventChat   = "chat"
	EventFile   = "file"
	EventSystem = "system"
	EventError  = "error"

	// EventHeartbeat 客户端心跳（仅客户端->服务端，刷新在线状态）
	EventHeartbeat = "heartbeat"
)

// Event WebSocket 双工通道上的统一事件载荷
// chat:   {type, from, text}，客户端发送时带 to
// file:   {type, from, filename, url}
// system: {type, message}
// error:  {type, message}

type Event struct {
	Type     string `json:"type"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Text     string `json:"text,omitempty"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ChatEvent 构造聊天消息事件
func ChatEvent(from, text string) Event {
	return Event{Type: EventChat, From: from, Text: text}
}

// FileEvent 构造文件消息事件
func FileEvent(from, filename, url string) Event {
	return Event{Type: EventFile, From: from, Filename: filename, URL: url}
}

// SystemEvent 构造系统提示事件
func SystemEvent(message string) Event {
	return Event{Type: EventSystem, Message: message}
}

// ErrorEvent 构造错误提示事件（仅发给操作发起方）
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// Encode 序列化为JSON字节
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
