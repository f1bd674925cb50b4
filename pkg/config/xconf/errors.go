package xconf

import "errors"

var (
	// ErrEmptyPath 配置路径为空
	ErrEmptyPath = errors.New("xconf: empty config path")

	// ErrUnsupportedFormat 不支持的格式
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")

	// ErrLoadFailed 读取失败
	ErrLoadFailed = errors.New("xconf: failed to load config")

	// ErrParseFailed 解析失败
	ErrParseFailed = errors.New("xconf: failed to parse config")

	// ErrUnmarshalFailed 反序列化失败
	ErrUnmarshalFailed = errors.New("xconf: failed to unmarshal config")

	// ErrNotReloadable 从字节创建的配置无法 Reload 或 Watch
	ErrNotReloadable = errors.New("xconf: config created from bytes is not reloadable")
)
