// =============================================================================
// Roundtable 主入口
// =============================================================================
// 多方 AI 对话调度命令行，包含实时记录、Prometheus 指标与对话归档
//
// 使用方法:
//
//	roundtable run --script panel.yaml                     # 以脚本运行时启动对话
//	roundtable run --config roundtable.yaml --watch        # 指定配置并热更新
//	roundtable run --script panel.yaml --mode sequential   # 覆盖调度模式
//	roundtable version                                     # 显示版本信息
// =============================================================================

package main

import (
	"fmt"
	"os"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		if err := runConversation(os.Args[2:], os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "roundtable: %v\n", err)
			os.Exit(1)
		}
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("Roundtable %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`Roundtable - multi-party AI conversation scheduler

Usage:
  roundtable <command> [options]

Commands:
  run       Start an interactive conversation on stdin
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>   Path to configuration file (YAML)
  --script <path>   Scripted runtime responses (YAML)
  --mode <mode>     Override conversation mode (hybrid, all_speak, sequential, pure_priority)
  --watch           Reload the conversation section when the config file changes

Inside a conversation:
  /transcript       Print the full transcript
  /quit             End the session

Examples:
  roundtable run --script examples/panel.yaml
  roundtable run --config /etc/roundtable/config.yaml --script panel.yaml --watch
  roundtable version`)
}
