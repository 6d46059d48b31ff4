package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultSendBuffer 默认单连接发送队列长度
const DefaultSendBuffer = 256

// Client 代表一个在线用户的WebSocket连接
// 一个用户名同一时刻至多绑定一个Client（由Registry保证）
// send 通道永远不会被close：关闭通过done通道广播，
// 避免顶号/断开竞态下对已关闭通道写入导致panic

type Client struct {
	Username string

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient 创建Client实例
// bufferSize<=0 时使用默认发送队列长度
func NewClient(username string, conn *websocket.Conn, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = DefaultSendBuffer
	}
	return &Client{
		Username: username,
		conn:     conn,
		send:     make(chan []byte, bufferSize),
		done:     make(chan struct{}),
	}
}

// Deliver 非阻塞投递一条消息到该连接的发送队列
// 连接已关闭或队列已满时直接丢弃并返回false（持久化由历史存储负责，
// 绝不让发送方协程阻塞在慢接收方上）
func (c *Client) Deliver(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Close 关闭连接：广播done并关闭底层连接，幂等
// 关闭后所有在途/后续Deliver均视为投递失败，不重试
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// Done 返回关闭信号通道
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// WritePump 写协程：串行写出发送队列中的消息，并定时发送ping心跳
// 写失败或收到关闭信号即退出并关闭连接
func (c *Client) WritePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
