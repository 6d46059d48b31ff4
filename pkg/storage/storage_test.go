package storage

import (
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"pingpong/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(config.StorageConfig{
		UploadDir:  t.TempDir(),
		URLPrefix:  "/files",
		MaxNameLen: 20,
	})
	require.NoError(t, err)
	return store
}

func TestSaveAndOpen(t *testing.T) {
	store := newTestStore(t)

	ref, err := store.Save("notes.txt", strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "/files/"))
	assert.True(t, strings.HasSuffix(ref, "_notes.txt"))

	f, err := store.Open(ref)
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

func TestSaveSameNameNoOverwrite(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Save("doc.pdf", strings.NewReader("one"))
	require.NoError(t, err)
	second, err := store.Save("doc.pdf", strings.NewReader("two"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	f, err := store.Open(first)
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "one", string(content))
}

func TestSanitizeName(t *testing.T) {
	store := newTestStore(t)

	// 去掉路径部分
	assert.Equal(t, "passwd", store.DisplayName("../../etc/passwd"))

	// 空名回退
	assert.Equal(t, "file.bin", store.DisplayName(""))
	assert.Equal(t, "file.bin", store.DisplayName("   "))

	// 超长名保留末尾（带扩展名的一段）
	long := strings.Repeat("a", 30) + ".tar.gz"
	got := store.DisplayName(long)
	assert.Len(t, got, 20)
	assert.True(t, strings.HasSuffix(got, ".tar.gz"))

	// 多字节文件名按rune截断，不产生无效UTF-8
	wide := strings.Repeat("文", 30) + ".txt"
	got = store.DisplayName(wide)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 20, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, ".txt"))
}
