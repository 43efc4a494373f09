// Command archivectl 是归档系统的运维工具：重建或修复搜索索引、签发操作令牌、批量导入文件。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"edu-archive-go/internal/bootstrap"
	"edu-archive-go/internal/config"
	"edu-archive-go/internal/service"
	"edu-archive-go/pkg/log"
	"edu-archive-go/pkg/token"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "archivectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "archivectl",
		Short:        "Archive maintenance CLI",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "配置文件路径")
	cmd.AddCommand(
		newIndexCmd(),
		newTokenCmd(),
		newImportCmd(),
	)
	return cmd
}

// loadConfig 读取配置并初始化日志。
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	log.InitCLI(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	return *cfg, nil
}

// withApp 组装完整的依赖并在 fn 返回后释放。命令行进程不注册指标。
func withApp(ctx context.Context, fn func(app *bootstrap.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	app, err := bootstrap.Build(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Maintain the search index",
	}
	cmd.AddCommand(newRebuildCmd(), newRepairCmd(), newDirtyCmd())
	return cmd
}

func newRebuildCmd() *cobra.Command {
	var purge bool
	var workers int
	var batchSize int
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index from every active document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				report, err := app.Indexer.Reindex(cmd.Context(), service.ReindexOptions{
					Purge:     purge,
					Workers:   workers,
					BatchSize: batchSize,
				})
				if err != nil {
					return err
				}
				return printReport(cmd, report)
			})
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "Drop every index entry before rebuilding")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent index writers (0 uses reindex.workers)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Documents loaded per batch (0 uses reindex.batch_size)")
	return cmd
}

func newRepairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Re-sync only the documents whose last index write failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				report, err := app.Indexer.RepairDirty(cmd.Context())
				if err != nil {
					return err
				}
				return printReport(cmd, report)
			})
		},
	}
}

func newDirtyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dirty",
		Short: "List documents whose last index write failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				ids, err := app.Indexer.DirtyIDs(cmd.Context())
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func newTokenCmd() *cobra.Command {
	var userID uint
	var username string
	var role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator bearer token with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			if role != token.RoleAdmin && role != token.RoleStaff {
				return fmt.Errorf("--role must be %s or %s", token.RoleAdmin, token.RoleStaff)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			signed, err := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours).
				GenerateToken(userID, username, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "User id embedded in the token")
	cmd.Flags().StringVar(&username, "username", "", "Username embedded in the token")
	cmd.Flags().StringVar(&role, "role", token.RoleStaff, "ADMIN or STAFF")
	return cmd
}

func printReport(cmd *cobra.Command, report *service.ReindexReport) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"indexed":  report.Indexed,
		"removed":  report.Removed,
		"failed":   report.Failed,
		"duration": report.Duration.String(),
	})
}
