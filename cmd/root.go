package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/archscan/internal/config"
	"github.com/zheng/archscan/internal/engine"
	"github.com/zheng/archscan/internal/logging"
	"github.com/zheng/archscan/internal/storage"
)

var (
	DbPath     string
	ConfigFile string
	ProjectID  string
	LogLevel   string

	// Version is overridden at build time with -ldflags
	Version = "dev"
)

// RegisterCommands adds the global flags and all subcommands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&DbPath, "db", "d", "", "数据库文件路径 (默认 .archscan.db)")
	flags.StringVarP(&ConfigFile, "config", "c", "", "配置文件路径 (默认 <项目目录>/.archscan.yaml)")
	flags.StringVarP(&ProjectID, "project", "p", "", "项目 ID (默认 default)")
	flags.StringVar(&LogLevel, "log-level", "", "日志级别 (debug/info/warn/error)")

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(cyclesCmd())
	rootCmd.AddCommand(layersCmd())
	rootCmd.AddCommand(riskCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(alertsCmd())
	rootCmd.AddCommand(upstreamCmd())
	rootCmd.AddCommand(downstreamCmd())
	rootCmd.AddCommand(impactCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(viewCmd())
	rootCmd.AddCommand(mcpCmd())
}

// session bundles what every command needs: resolved config, a logger and the open database
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *storage.DB
}

// openSession loads configuration from dir, applies flag overrides and opens the database
func openSession(dir string) (*session, error) {
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	return &session{cfg: cfg, logger: logger, db: db}, nil
}

func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.Load(ConfigFile, dir)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if DbPath != "" {
		cfg.Database = DbPath
	}
	if ProjectID != "" {
		cfg.Project = ProjectID
	}
	if LogLevel != "" {
		cfg.Log.Level = LogLevel
	}
	return cfg, nil
}

func (s *session) Close() error {
	return s.db.Close()
}

func (s *session) project() string {
	return s.cfg.Project
}

// engine builds an analysis engine from the session's configuration
func (s *session) engine() (*engine.Engine, error) {
	opts, err := engine.FromConfig(s.cfg, s.logger)
	if err != nil {
		return nil, fmt.Errorf("初始化分析引擎失败: %w", err)
	}
	return engine.New(opts...), nil
}
