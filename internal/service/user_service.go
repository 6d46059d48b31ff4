package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pingpong/internal/model"
	"pingpong/internal/repository"
	"pingpong/pkg/jwt"
	"pingpong/pkg/password"

	"gorm.io/gorm"
)

// UserService 账号服务：注册、登录、令牌签发
type UserService struct {
	repo       *repository.UserRepository
	jwtService *jwt.JWTService
}

// NewUserService 创建UserService实例
func NewUserService(repo *repository.UserRepository, jwtService *jwt.JWTService) *UserService {
	return &UserService{repo: repo, jwtService: jwtService}
}

// Register 注册
func (s *UserService) Register(username, plainPassword string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || plainPassword == "" {
		return nil, "", errors.New("username and password are required")
	}

	// 先查重，依赖唯一索引兜底并发注册
	exists, err := s.repo.ExistsByUsername(username)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", ErrUsernameTaken
	}

	// 密码哈希
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		Status:       "offline",
		LastSeen:     time.Now(),
	}
	if err := s.repo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", err
	}

	// 默认签发 token
	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login 登录
func (s *UserService) Login(username, plainPassword string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || plainPassword == "" {
		return nil, "", ErrInvalidCredentials
	}
	u, err := s.repo.GetByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !password.Verify(plainPassword, u.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Logout 登出：仅更新在线状态为offline
func (s *UserService) Logout(userID uint) error {
	return s.repo.UpdateStatus(userID, "offline")
}

// issueToken 以用户ID为subject签发访问令牌，用户名放入Data
func (s *UserService) issueToken(u *model.User) (string, error) {
	return s.jwtService.GenerateToken(
		fmt.Sprintf("%d", u.ID),
		map[string]interface{}{"username": u.Username},
	)
}
