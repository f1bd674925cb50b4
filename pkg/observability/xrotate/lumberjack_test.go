package xrotate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// lumberjack 的 millRun goroutine 在 Close 后仍驻留，属上游限制
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)
}

// TestNewLumberjack_Write 测试写入与自动创建目录
func TestNewLumberjack_Write(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "nested", "coord.log")

	r, err := NewLumberjack(filename, WithMaxSize(1), WithCompress(false), nil)
	require.NoError(t, err)

	n, err := r.Write([]byte("lock-acquired\n"))
	require.NoError(t, err)
	assert.Equal(t, 14, n)
	require.NoError(t, r.Close())

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "lock-acquired\n", string(data))
}

// TestNewLumberjack_Validation 测试配置校验
func TestNewLumberjack_Validation(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		filename string
		opts     []Option
		wantErr  error
	}{
		{"空文件名", "", nil, ErrEmptyFilename},
		{"MaxSize 为零", filepath.Join(dir, "a.log"), []Option{WithMaxSize(0)}, ErrInvalidMaxSize},
		{"MaxSize 超限", filepath.Join(dir, "a.log"), []Option{WithMaxSize(maxSizeMB + 1)}, ErrInvalidMaxSize},
		{"MaxBackups 为负", filepath.Join(dir, "a.log"), []Option{WithMaxBackups(-1)}, ErrInvalidMaxBackups},
		{"MaxAge 超限", filepath.Join(dir, "a.log"), []Option{WithMaxAge(maxAgeDays + 1)}, ErrInvalidMaxAge},
		{"无清理策略", filepath.Join(dir, "a.log"), []Option{WithMaxBackups(0), WithMaxAge(0)}, ErrNoCleanupPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLumberjack(tt.filename, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestLumberjack_Closed 测试关闭后的行为
func TestLumberjack_Closed(t *testing.T) {
	r, err := NewLumberjack(filepath.Join(t.TempDir(), "c.log"), WithLocalTime(true))
	require.NoError(t, err)

	_, err = r.Write([]byte("x\n"))
	require.NoError(t, err)
	require.NoError(t, r.Rotate())

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Close(), ErrClosed)
	_, err = r.Write([]byte("y"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.Rotate(), ErrClosed)
}
