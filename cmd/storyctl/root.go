package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"story-studio/internal/application/plan"
	"story-studio/internal/config"
	"story-studio/internal/domain/service"
	"story-studio/internal/infrastructure/capitol"
	"story-studio/pkg/logger"
)

// backend 命令行使用的外部服务能力
type backend interface {
	service.StoryService
	service.ChatService
}

// cli 命令共享的依赖，测试时可预置
type cli struct {
	configDir string
	verbose   bool

	cfg        *config.Config
	registry   *plan.Registry
	newBackend func(cfg *config.Config) (backend, error)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	createdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "storyctl",
		Short: "Generate, inspect and chat with stories from the command line",
		Long: `storyctl drives the external story service without the web UI.

Quick Start:
  storyctl plans                                  # Show the built-in presets
  storyctl generate --prompt "Draft Q3 report"    # Run every configured plan
  storyctl chat --story-id abc123 --query "..."   # Stream a chat about a story`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}

	root.PersistentFlags().StringVar(&c.configDir, "config-dir", "", "Directory holding config.yaml (default: ./configs)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newPlansCmd(c),
		newGenerateCmd(c),
		newChatCmd(c),
	)
	return root
}

// init 加载配置与日志；已预置的依赖不覆盖
func (c *cli) init() error {
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	logger.Init(level, "text")

	if c.registry == nil {
		c.registry = plan.NewRegistry()
	}
	if c.newBackend == nil {
		c.newBackend = func(cfg *config.Config) (backend, error) {
			return capitol.NewClient(&cfg.Capitol, capitol.Options{})
		}
	}
	if c.cfg != nil {
		return nil
	}

	var err error
	if c.configDir != "" {
		c.cfg, err = config.LoadFrom(c.configDir)
	} else {
		c.cfg, err = config.Load()
	}
	return err
}
