package websocket

import "sync"

// Registry 在线连接注册表：用户名 -> 当前活跃连接
// 是"谁在线"的唯一事实来源，支持任意连接协程并发读写
// 每个用户名至多一条记录：重复注册顶掉并关闭旧连接

type Registry struct {
	lock    sync.RWMutex
	clients map[string]*Client
}

// NewRegistry 创建Registry实例
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
	}
}

// Register 注册连接
// 同一用户名已有连接时替换为新连接（支持掉线后重连），
// 旧连接被关闭，发往旧连接的在途消息视为投递失败
func (r *Registry) Register(username string, client *Client) {
	r.lock.Lock()
	old := r.clients[username]
	r.clients[username] = client
	r.lock.Unlock()

	if old != nil && old != client {
		old.Close()
	}
}

// Unregister 注销连接
// 仅当当前注册的连接就是调用方的连接时才移除，
// 防止已被顶掉的旧连接的延迟断开事件误删新注册
func (r *Registry) Unregister(username string, client *Client) {
	r.lock.Lock()
	if cur, ok := r.clients[username]; ok && cur == client {
		delete(r.clients, username)
	}
	r.lock.Unlock()
}

// Lookup 查找用户当前活跃连接
func (r *Registry) Lookup(username string) (*Client, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	client, ok := r.clients[username]
	return client, ok
}

// IsOnline 判断用户是否在线
func (r *Registry) IsOnline(username string) bool {
	_, ok := r.Lookup(username)
	return ok
}

// Deliver 向指定用户当前连接非阻塞投递消息
// 用户不在线或队列已满返回false（尽力而为，不保证送达）
func (r *Registry) Deliver(username string, msg []byte) bool {
	client, ok := r.Lookup(username)
	if !ok {
		return false
	}
	return client.Deliver(msg)
}

// OnlineUsers 返回当前在线用户名列表
func (r *Registry) OnlineUsers() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	users := make([]string, 0, len(r.clients))
	for username := range r.clients {
		users = append(users, username)
	}
	return users
}

// Count 返回当前在线连接数
func (r *Registry) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.clients)
}
