package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"pingpong/config"
	"pingpong/internal/model"
	"pingpong/internal/repository"
	"pingpong/internal/service"
	"pingpong/pkg/jwt"
	"pingpong/pkg/logger"
	"pingpong/pkg/storage"
	ws "pingpong/pkg/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	dir, err := os.MkdirTemp("", "pingpong-handler-test")
	if err != nil {
		panic(err)
	}
	logger.InitLogger(config.LogConfig{
		Level:    "error",
		Filename: filepath.Join(dir, "test.log"),
		MaxSize:  1,
	})

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// testServer 端到端测试环境：内存SQLite + 完整路由 + 真实HTTP服务
type testServer struct {
	srv      *httptest.Server
	db       *gorm.DB
	registry *ws.Registry
	store    *storage.LocalStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:handler_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.FriendRequest{}, &model.Message{}))

	jwtSvc := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour, Issuer: "pingpong-test"})
	registry := ws.NewRegistry()

	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	userSvc := service.NewUserService(userRepo, jwtSvc)
	friendSvc := service.NewFriendService(friendRepo, userRepo)
	messageSvc := service.NewMessageService(messageRepo, userRepo, friendSvc, registry)

	storageCfg := config.StorageConfig{
		UploadDir:  filepath.Join(t.TempDir(), "uploads"),
		URLPrefix:  "/files",
		MaxSizeMB:  1,
		MaxNameLen: 100,
	}
	store, err := storage.NewLocalStore(storageCfg)
	require.NoError(t, err)

	userHandler := NewUserHandler(userSvc, registry)
	friendHandler := NewFriendHandler(friendSvc, registry)
	messageHandler := NewMessageHandler(messageSvc)
	fileHandler := NewFileHandler(messageSvc, store, storageCfg)
	wsHandler := NewWSHandler(jwtSvc, userRepo, messageSvc, registry, config.WebSocketConfig{
		PingInterval: 50 * time.Millisecond,
		ReadTimeout:  5 * time.Second,
		SendBuffer:   16,
	})

	router := gin.New()
	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			authUsers := users.Group("")
			authUsers.Use(jwtSvc.AuthMiddleware())
			{
				authUsers.GET("/profile", userHandler.GetProfile)
				authUsers.POST("/logout", userHandler.Logout)
				authUsers.GET("/online", userHandler.GetOnlineUsers)
				authUsers.GET("/:username/online", userHandler.CheckUserOnline)
			}
		}

		friends := v1.Group("/friends")
		friends.Use(jwtSvc.AuthMiddleware())
		{
			friends.POST("/request", friendHandler.SendRequest)
			friends.POST("/respond", friendHandler.Respond)
			friends.GET("", friendHandler.GetSummary)
		}

		conversations := v1.Group("/conversations")
		conversations.Use(jwtSvc.AuthMiddleware())
		{
			conversations.GET("/:username/messages", messageHandler.GetConversationMessages)
		}

		files := v1.Group("/files")
		files.Use(jwtSvc.AuthMiddleware())
		{
			files.POST("/upload", fileHandler.Upload)
		}
	}
	router.GET("/ws", wsHandler.Handle)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, db: db, registry: registry, store: store}
}

// envelope 统一响应结构（测试侧解码用）
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (ts *testServer) doJSON(t *testing.T, method, path, token string, body interface{}) *envelope {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return &env
}

// register 注册用户并返回访问令牌
func (ts *testServer) register(t *testing.T, username string) string {
	t.Helper()
	env := ts.doJSON(t, http.MethodPost, "/api/v1/users/register", "", gin.H{
		"username": username,
		"password": "secret123",
	})
	require.Equal(t, 0, env.Code)

	var auth struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	require.NotEmpty(t, auth.AccessToken)
	return auth.AccessToken
}

// sendFriendRequest 发起好友请求并返回请求ID
func (ts *testServer) sendFriendRequest(t *testing.T, token, toUsername string) uint {
	t.Helper()
	env := ts.doJSON(t, http.MethodPost, "/api/v1/friends/request", token, gin.H{"to_username": toUsername})
	require.Equal(t, 0, env.Code)

	var info struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &info))
	return info.ID
}

// makeFriends 完整走一遍请求+接受流程
func (ts *testServer) makeFriends(t *testing.T, fromToken, toToken, toUsername string) {
	t.Helper()
	requestID := ts.sendFriendRequest(t, fromToken, toUsername)
	env := ts.doJSON(t, http.MethodPost, "/api/v1/friends/respond", toToken, gin.H{
		"request_id": requestID,
		"accept":     true,
	})
	require.Equal(t, 0, env.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	ts.register(t, "alice")

	// 用户名冲突
	env := ts.doJSON(t, http.MethodPost, "/api/v1/users/register", "", gin.H{
		"username": "alice",
		"password": "other",
	})
	assert.Equal(t, 409, env.Code)

	// 正确口令登录
	env = ts.doJSON(t, http.MethodPost, "/api/v1/users/login", "", gin.H{
		"username": "alice",
		"password": "secret123",
	})
	assert.Equal(t, 0, env.Code)

	// 错误口令
	env = ts.doJSON(t, http.MethodPost, "/api/v1/users/login", "", gin.H{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, 401, env.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	env := ts.doJSON(t, http.MethodGet, "/api/v1/users/profile", "", nil)
	assert.Equal(t, 401, env.Code)

	env = ts.doJSON(t, http.MethodGet, "/api/v1/friends", "bad-token", nil)
	assert.Equal(t, 401, env.Code)
}

func TestFriendFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	aliceToken := ts.register(t, "alice")
	bobToken := ts.register(t, "bob")
	carolToken := ts.register(t, "carol")

	requestID := ts.sendFriendRequest(t, aliceToken, "bob")

	// 旁观者不能响应
	env := ts.doJSON(t, http.MethodPost, "/api/v1/friends/respond", carolToken, gin.H{
		"request_id": requestID,
		"accept":     true,
	})
	assert.Equal(t, 403, env.Code)

	// 接收方接受
	env = ts.doJSON(t, http.MethodPost, "/api/v1/friends/respond", bobToken, gin.H{
		"request_id": requestID,
		"accept":     true,
	})
	assert.Equal(t, 0, env.Code)

	// 重复响应：终态冲突
	env = ts.doJSON(t, http.MethodPost, "/api/v1/friends/respond", bobToken, gin.H{
		"request_id": requestID,
		"accept":     false,
	})
	assert.Equal(t, 409, env.Code)

	// 汇总视图
	env = ts.doJSON(t, http.MethodGet, "/api/v1/friends", aliceToken, nil)
	require.Equal(t, 0, env.Code)
	var summary struct {
		Friends []struct {
			Username string `json:"username"`
			Online   bool   `json:"online"`
		} `json:"friends"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	require.Len(t, summary.Friends, 1)
	assert.Equal(t, "bob", summary.Friends[0].Username)
	assert.False(t, summary.Friends[0].Online)
}

func TestConversationHistoryEndpoint(t *testing.T) {
	ts := newTestServer(t)
	aliceToken := ts.register(t, "alice")
	bobToken := ts.register(t, "bob")
	ts.register(t, "carol")
	ts.makeFriends(t, aliceToken, bobToken, "bob")

	// 非好友查询被拒
	env := ts.doJSON(t, http.MethodGet, "/api/v1/conversations/carol/messages", aliceToken, nil)
	assert.Equal(t, 403, env.Code)

	// 不存在的用户
	env = ts.doJSON(t, http.MethodGet, "/api/v1/conversations/nobody/messages", aliceToken, nil)
	assert.Equal(t, 404, env.Code)

	// 好友查询：空历史也成功
	env = ts.doJSON(t, http.MethodGet, "/api/v1/conversations/bob/messages", aliceToken, nil)
	require.Equal(t, 0, env.Code)
	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Empty(t, items)
}

func (ts *testServer) uploadFile(t *testing.T, token, toUsername, filename, content string) *envelope {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("to_username", toUsername))
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/v1/files/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return &env
}

func TestFileUpload(t *testing.T) {
	ts := newTestServer(t)
	aliceToken := ts.register(t, "alice")
	bobToken := ts.register(t, "bob")
	ts.register(t, "carol")
	ts.makeFriends(t, aliceToken, bobToken, "bob")

	// 非好友上传在保存字节之前就被拒
	env := ts.uploadFile(t, aliceToken, "carol", "doc.txt", "hello")
	assert.Equal(t, 403, env.Code)
	entries, err := os.ReadDir(ts.store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)

	env = ts.uploadFile(t, aliceToken, "bob", "doc.txt", "hello")
	require.Equal(t, 0, env.Code)

	var uploaded struct {
		Type     string `json:"type"`
		From     string `json:"from"`
		Filename string `json:"filename"`
		URL      string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &uploaded))
	assert.Equal(t, "file", uploaded.Type)
	assert.Equal(t, "alice", uploaded.From)
	assert.Equal(t, "doc.txt", uploaded.Filename)
	assert.Contains(t, uploaded.URL, "/files/")

	// 文件字节确实落盘
	ref, err := ts.store.Open(uploaded.URL)
	require.NoError(t, err)
	defer ref.Close()
	content, err := io.ReadAll(ref)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	// 同时产生一条file类型消息
	env = ts.doJSON(t, http.MethodGet, "/api/v1/conversations/alice/messages", bobToken, nil)
	require.Equal(t, 0, env.Code)
	var items []struct {
		Kind string `json:"kind"`
		Text string `json:"text"`
		URL  string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "file", items[0].Kind)
	assert.Equal(t, "doc.txt", items[0].Text)
	assert.Equal(t, uploaded.URL, items[0].URL)
}
