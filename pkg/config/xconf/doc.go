// Package xconf 基于 koanf 的配置加载，支持 YAML/JSON、默认值叠加与文件热更新。
//
// xcoordctl 把内置的默认配置作为底层，再叠加用户文件：
//
//	cfg, err := xconf.New("xcoordctl.yaml", xconf.WithDefaults(defaultYAML, xconf.FormatYAML))
//	var c Config
//	err = cfg.Unmarshal("", &c)
//
// [Watch] 监听配置文件所在目录（兼容编辑器的 rename 写入），去抖后 Reload 并回调。
package xconf
