package xtask

import (
	"errors"

	"github.com/omeyang/xcoord/pkg/coordination/xcoord"
)

var (
	// ErrEmptyID 任务标识为空
	ErrEmptyID = errors.New("xtask: id is empty")

	// ErrNilContext context 为 nil
	ErrNilContext = errors.New("xtask: context cannot be nil")

	// ErrInvalidSchedule cron 表达式无法解析
	ErrInvalidSchedule = errors.New("xtask: invalid schedule")

	// ErrState 任务已在运行时 Start，或未运行时 Stop
	ErrState = xcoord.ErrState
)
