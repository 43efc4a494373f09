package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"edu-archive-go/internal/bootstrap"
	"edu-archive-go/internal/service"
	"edu-archive-go/pkg/log"

	"github.com/spf13/cobra"
)

// importActor 是批量导入在审计日志中的身份。
var importActor = service.Actor{Username: "archivectl", IPAddress: "local"}

func newImportCmd() *cobra.Command {
	var dir string
	var categoryID uint
	var periodID uint
	var tags string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upload every file under a directory through the normal ingestion path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" || categoryID == 0 || periodID == 0 {
				return fmt.Errorf("--dir, --category-id and --period-id are required")
			}
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				stats, err := importDir(cmd.Context(), app.DocumentSvc, dir, service.UploadInput{
					CategoryID: categoryID,
					PeriodID:   periodID,
					Tags:       service.ParseTagNames(tags),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported=%d failed=%d skipped=%d\n", stats.Imported, stats.Failed, stats.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to import")
	cmd.Flags().UintVar(&categoryID, "category-id", 0, "Category for every imported document")
	cmd.Flags().UintVar(&periodID, "period-id", 0, "Academic period for every imported document")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma separated tags attached to every document")
	return cmd
}

type importStats struct {
	Imported int
	Failed   int
	Skipped  int
}

// importDir 遍历目录并逐个上传文件。单个文件失败只记录日志，不中断遍历。
func importDir(ctx context.Context, docs service.DocumentService, dir string, base service.UploadInput) (importStats, error) {
	var stats importStats
	info, err := os.Stat(dir)
	if err != nil {
		return stats, err
	}
	if !info.IsDir() {
		return stats, fmt.Errorf("%s 不是目录", dir)
	}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warnf("[Import] 访问 %s 失败: %v", path, err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			stats.Skipped++
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			log.Warnf("[Import] 打开文件失败: %s, err=%v", path, err)
			stats.Failed++
			return nil
		}
		defer f.Close()

		in := base
		in.File = f
		in.OriginalFilename = d.Name()
		doc, err := docs.Upload(ctx, importActor, in)
		if err != nil {
			log.Warnf("[Import] 导入失败: %s, err=%v", path, err)
			stats.Failed++
			return nil
		}
		log.Infof("[Import] 导入完成: %s -> document %d", d.Name(), doc.ID)
		stats.Imported++
		return nil
	})
	return stats, walkErr
}
