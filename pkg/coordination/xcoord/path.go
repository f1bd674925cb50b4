package xcoord

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

const seqPrefix = "n-"

// cleanPath 校验并规范化路径
func cleanPath(p string) (string, error) {
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	p = path.Clean(p)
	if p == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return p, nil
}

// seqNodeID 顺序节点 ID：<path>/n-<10 位序号>，字典序与序号一致
func seqNodeID(parent string, seq int64) string {
	return fmt.Sprintf("%s/%s%010d", parent, seqPrefix, seq)
}

// parseSeqNodeID 从顺序节点 ID 解析父路径和序号
func parseSeqNodeID(id string) (string, int64, error) {
	i := strings.LastIndex(id, "/")
	if i <= 0 || !strings.HasPrefix(id[i+1:], seqPrefix) {
		return "", 0, fmt.Errorf("%w: node id %q", ErrInvalidPath, id)
	}
	seq, err := strconv.ParseInt(id[i+1+len(seqPrefix):], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: node id %q", ErrInvalidPath, id)
	}
	return id[:i], seq, nil
}
