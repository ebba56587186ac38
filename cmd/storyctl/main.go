// Package main 故事生成命令行工具
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Version 版本信息，构建时注入
var Version = "dev"

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	if err := newRootCmd(&cli{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
