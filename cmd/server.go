package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/archscan/internal/engine"
	"github.com/zheng/archscan/internal/mcp"
	"github.com/zheng/archscan/internal/watcher"
	"github.com/zheng/archscan/internal/web"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp [project-path]",
		Short: "启动 MCP (Model Context Protocol) 服务器",
		Long: `启动 MCP 服务器，允许 AI 助手（如 Cursor、Claude）直接查询模块依赖图。

MCP 工具包括：
  - analyze: 重新扫描项目
  - impact: 分析文件变更的影响范围
  - upstream / downstream: 查询依赖树
  - cycles: 列出循环依赖
  - suggestions: 查看重构建议
  - search: 搜索模块
  - risk: 评估变更风险
  - report: 导出 Markdown 架构报告`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}

			s, err := openSession(projectPath)
			if err != nil {
				return err
			}
			defer s.Close()

			eng, err := s.engine()
			if err != nil {
				return err
			}

			server := mcp.NewServer(s.db, s.project(), projectPath, eng, Version)
			return server.Run()
		},
	}

	return cmd
}

func watchCmd() *cobra.Command {
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch [project-path]",
		Short: "监控文件变更并自动更新依赖图",
		Long: `启动 watch 模式，监控项目中的 JS/TS 文件变更。
当检测到文件变更时，自动重新分析并更新依赖图数据库。

特性：
  - 自动递归监控所有目录，新建目录自动加入
  - 防抖处理，避免频繁触发分析
  - 忽略 node_modules、.git、dist、build 等目录

示例：
  archscan watch .                  # 监控当前目录
  archscan watch . -d .archscan.db  # 指定数据库路径
  archscan watch . --debounce 1000  # 设置 1 秒防抖延迟`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}
			absPath, err := filepath.Abs(projectPath)
			if err != nil {
				return fmt.Errorf("解析路径失败: %w", err)
			}

			s, err := openSession(absPath)
			if err != nil {
				return err
			}
			defer s.Close()

			eng, err := s.engine()
			if err != nil {
				return err
			}

			debounce := s.cfg.Watch.Debounce
			if cmd.Flags().Changed("debounce") {
				debounce = time.Duration(debounceMs) * time.Millisecond
			}

			w, err := watcher.New(
				absPath,
				s.project(),
				s.db,
				eng,
				watcher.WithLogger(s.logger),
				watcher.WithExtensions(s.cfg.Scan.Extensions),
				watcher.WithDebounceDelay(debounce),
				watcher.WithOnAnalysisStart(func(files []string) {
					fmt.Printf("[%s] 检测到 %d 个文件变更，开始分析...\n", time.Now().Format("15:04:05"), len(files))
				}),
				watcher.WithOnAnalysisDone(func(rep *engine.Report, duration time.Duration) {
					fmt.Printf("[%s] 分析完成: %d 模块, %d 依赖, %d 循环 (耗时 %v)\n",
						time.Now().Format("15:04:05"), rep.Stats.TotalFiles, rep.Stats.TotalEdges,
						rep.Stats.CircularChains, duration.Round(time.Millisecond))
				}),
				watcher.WithOnError(func(err error) {
					fmt.Fprintf(os.Stderr, "[%s] 错误: %v\n", time.Now().Format("15:04:05"), err)
				}),
			)
			if err != nil {
				return fmt.Errorf("创建监控器失败: %w", err)
			}
			defer w.Stop()

			fmt.Println("执行初始分析...")
			rep, err := w.Analyze()
			if err != nil {
				return fmt.Errorf("初始分析失败: %w", err)
			}
			fmt.Printf("初始分析完成: %d 模块, %d 依赖\n", rep.Stats.TotalFiles, rep.Stats.TotalEdges)

			fmt.Printf("\n开始监控目录: %s\n", absPath)
			fmt.Printf("数据库路径: %s\n", s.cfg.Database)
			fmt.Printf("防抖延迟: %v\n", debounce)
			fmt.Println("\n按 Ctrl+C 停止...")
			fmt.Println()

			w.Start()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			fmt.Println("\n停止监控...")
			return nil
		},
	}

	cmd.Flags().IntVar(&debounceMs, "debounce", 500, "防抖延迟（毫秒），默认取配置 watch.debounce")

	return cmd
}

func viewCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "启动 Web UI 可视化依赖图",
		Long: `启动一个本地 Web 服务器，提供交互式的模块依赖图可视化界面。

特性：
  - 交互式力导向图（缩放、拖拽、点击），按层级着色
  - 循环依赖边高亮
  - 模块搜索和过滤
  - 影响分析（双击节点高亮上下游）
  - 重构建议与告警面板

示例：
  archscan view                  # 使用配置中的地址 (默认 :8080)
  archscan view --addr :3000     # 指定地址
  archscan view -d my.db         # 指定数据库`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(".")
			if err != nil {
				return err
			}
			defer s.Close()

			if addr == "" {
				addr = s.cfg.Web.Addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("🌐 Web UI: http://localhost%s\n", displayAddr(addr))
			fmt.Println("按 Ctrl+C 停止...")

			server := web.NewServer(s.db, s.project(), addr, s.cfg.Web.AllowOrigins, s.logger)
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "监听地址 (默认取配置 web.addr)")

	return cmd
}

// displayAddr keeps the ":port" part of a listen address
func displayAddr(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[i:]
		}
	}
	return ":" + addr
}
