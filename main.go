package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/archscan/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "archscan",
		Short: "archscan - JS/TS 项目架构分析工具",
		Long: `archscan 扫描 JavaScript/TypeScript 项目，构建模块依赖图，
检测循环依赖与分层违规，给出可解释的重构建议，帮助在改动前看清影响范围。`,
		Version:       cmd.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.RegisterCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
