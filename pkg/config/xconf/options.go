package xconf

type options struct {
	delim          string
	tag            string
	defaults       []byte
	defaultsFormat Format
}

// Option 配置选项
type Option func(*options)

func defaultOptions() *options {
	return &options{delim: ".", tag: "koanf"}
}

// WithDelim 设置 key 分隔符，默认 "."
func WithDelim(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.delim = delim
		}
	}
}

// WithTag 设置结构体 tag，默认 "koanf"
func WithTag(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.tag = tag
		}
	}
}

// WithDefaults 设置默认配置，先于文件加载，Reload 时同样生效
func WithDefaults(data []byte, format Format) Option {
	return func(o *options) {
		o.defaults = data
		o.defaultsFormat = format
	}
}
