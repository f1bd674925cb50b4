// xcoordctl 运行分布式锁与选主的演示场景。
//
// 用法:
//
//	xcoordctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config     配置文件（YAML/JSON），叠加在内置默认值之上，修改 log.level 即时生效
//	-b, --backend    协调服务后端: memory | etcd | redis，覆盖配置
//	-l, --log-level  日志级别，覆盖配置
//
// 命令:
//
//	lock    多个 worker 有限等待争抢 /locks/shared，展示超时放弃与及时移交
//	elect   多个参与者竞选 /service/leader，leader 运行周期任务；
//	        每输入一行（回车）当前 leader 放弃领导权并重新排队
//
// 示例:
//
//	xcoordctl lock
//	xcoordctl -b etcd -c xcoordctl.yaml elect -n 3
//	xcoordctl elect --tenure 20s
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息，通过 -ldflags "-X main.Version=..." 注入
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args))
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xcoordctl",
		Usage:   "分布式锁与选主演示",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径",
			},
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "协调服务后端 (memory/etcd/redis)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "日志级别 (debug/info/warn/error)",
			},
		},
		Commands: []*cli.Command{
			createLockCommand(),
			createElectCommand(),
		},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func run(ctx context.Context, args []string) int {
	if err := createApp().Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
