package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/archscan/internal/analyzer"
	"github.com/zheng/archscan/internal/impact"
)

func analyzeCmd() *cobra.Command {
	var outputPath string
	var incremental bool
	var gitBase string
	var remote bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [project-path]",
		Short: "扫描 JS/TS 项目并构建模块依赖图",
		Long: `扫描项目目录，提取 import/require/export-from 引用，构建模块依赖图并写入数据库。

分析内容：
  - 模块类型与分层 (presentation/client/server/external)
  - 复杂度与耦合度
  - 循环依赖、分层违规、拆分候选
  - 重构建议与架构漂移告警

示例：
  archscan analyze .                 # 全量分析当前目录
  archscan analyze . -i              # 仅当有 git 变更时重新分析
  archscan analyze . -i -r           # 与远程同分支对比`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}
			if outputPath != "" {
				DbPath = outputPath
			}

			var changedFiles []string
			if incremental {
				// 如果启用 remote 模式，自动获取远程分支作为 base
				if remote {
					remoteBranch, err := analyzer.GetRemoteTrackingBranch(projectPath)
					if err != nil {
						fmt.Printf("警告: 无法获取远程分支: %v，将使用默认 HEAD\n", err)
					} else {
						gitBase = remoteBranch
						fmt.Printf("对比远程分支: %s\n", remoteBranch)
					}
				}

				fmt.Println("检测 git 变更...")
				changes, err := analyzer.GetGitChanges(projectPath, gitBase)
				if err != nil {
					fmt.Printf("警告: 无法获取 git 变更，将执行全量分析: %v\n", err)
				} else if !changes.HasChanges() {
					fmt.Println("没有检测到源文件变更，跳过分析")
					return nil
				} else {
					fmt.Printf("检测到 %d 个变更文件，涉及 %d 个目录:\n", len(changes.ChangedFiles), len(changes.ChangedDirs))
					for _, f := range changes.ChangedFiles {
						fmt.Printf("  - %s\n", f)
					}
					changedFiles = changes.ChangedFiles
				}
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

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !asJSON {
				fmt.Printf("扫描项目: %s\n", projectPath)
			}
			rep, err := eng.Run(ctx, s.project(), projectPath)
			if err != nil {
				return fmt.Errorf("分析失败: %w", err)
			}
			if err := s.db.SaveReport(rep); err != nil {
				return fmt.Errorf("保存结果失败: %w", err)
			}

			if asJSON {
				return outputJSON(rep)
			}

			fmt.Printf("分析完成 (耗时 %v)\n", rep.Stats.Duration.Round(time.Millisecond))
			printStats(rep)

			nodeCount, edgeCount, _ := s.db.Counts(s.project())
			fmt.Printf("\n写入数据库: %s (项目 %s)\n", s.cfg.Database, s.project())
			fmt.Printf("数据库总计: %d 模块, %d 依赖\n", nodeCount, edgeCount)

			if len(changedFiles) > 0 {
				report, err := impact.NewAnalyzer(s.db, s.project()).FilesImpact(changedFiles)
				if err != nil {
					return fmt.Errorf("变更影响分析失败: %w", err)
				}
				fmt.Println()
				fmt.Print(report.FormatMarkdown())
			}

			if rep.Stats.CircularChains > 0 || len(rep.Violations) > 0 {
				fmt.Println("\n💡 使用 archscan cycles / archscan layers 查看详情")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "输出数据库路径")
	cmd.Flags().BoolVarP(&incremental, "incremental", "i", false, "增量模式 (无 git 变更时跳过，并输出变更影响)")
	cmd.Flags().StringVar(&gitBase, "base", "HEAD", "git 比较基准 (默认 HEAD，即未提交的变更)")
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "与远程同分支对比 (origin/<当前分支>)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出完整分析结果")

	return cmd
}
