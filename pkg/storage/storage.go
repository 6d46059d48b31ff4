package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"pingpong/config"

	"github.com/google/uuid"
)

// LocalStore 本地磁盘文件存储
// 保存上传的文件字节并返回可检索的引用（URL路径），
// 引用经 URLPrefix 静态路由对外提供下载

type LocalStore struct {
	dir        string
	urlPrefix  string
	maxNameLen int
}

// NewLocalStore 创建本地文件存储，确保上传目录存在
func NewLocalStore(cfg config.StorageConfig) (*LocalStore, error) {
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/files"
	}
	if cfg.MaxNameLen <= 0 {
		cfg.MaxNameLen = 100
	}
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	return &LocalStore{
		dir:        cfg.UploadDir,
		urlPrefix:  cfg.URLPrefix,
		maxNameLen: cfg.MaxNameLen,
	}, nil
}

// Save 保存文件字节，返回对外可访问的引用路径
// 落盘文件名为 <随机hex>_<原始文件名>，避免同名覆盖
func (s *LocalStore) Save(filename string, r io.Reader) (string, error) {
	name := s.sanitizeName(filename)
	unique := strings.ReplaceAll(uuid.New().String(), "-", "") + "_" + name

	f, err := os.Create(filepath.Join(s.dir, unique))
	if err != nil {
		return "", fmt.Errorf("save file failed: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("save file failed: %w", err)
	}
	return path.Join(s.urlPrefix, unique), nil
}

// Open 根据引用路径打开已保存的文件
func (s *LocalStore) Open(ref string) (*os.File, error) {
	name := path.Base(ref)
	return os.Open(filepath.Join(s.dir, name))
}

// Dir 返回上传目录（用于静态文件路由）
func (s *LocalStore) Dir() string {
	return s.dir
}

// URLPrefix 返回对外访问路径前缀
func (s *LocalStore) URLPrefix() string {
	return s.urlPrefix
}

// DisplayName 返回清洗后的展示文件名（与落盘所用的原始名部分一致）
func (s *LocalStore) DisplayName(filename string) string {
	return s.sanitizeName(filename)
}

// sanitizeName 清洗文件名：去掉路径部分；超长时保留末尾（带扩展名的一段）
// 按rune截断，多字节文件名不会被切出无效UTF-8
func (s *LocalStore) sanitizeName(filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "file.bin"
	}
	if runes := []rune(name); len(runes) > s.maxNameLen {
		name = string(runes[len(runes)-s.maxNameLen:])
	}
	return name
}
