// Package main 是应用程序的入口点。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edu-archive-go/internal/bootstrap"
	"edu-archive-go/internal/config"
	"edu-archive-go/internal/handler"
	"edu-archive-go/pkg/log"
	"edu-archive-go/pkg/token"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 初始化配置
	config.Init(*configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 组装存储、提取管道、索引与各个服务
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := bootstrap.Build(initCtx, cfg, prometheus.DefaultRegisterer)
	cancelInit()
	if err != nil {
		log.Fatal("初始化应用失败", err)
	}
	defer app.Close()

	// 4. 注册路由
	r := handler.NewRouter(handler.RouterDeps{
		Mode:            cfg.Server.Mode,
		JWT:             token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours),
		Documents:       app.DocumentSvc,
		Search:          app.SearchSvc,
		Admin:           app.AdminSvc,
		DB:              app.DB,
		Metrics:         app.Metrics,
		Gatherer:        prometheus.DefaultGatherer,
		MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
		MultipartMemory: 32 << 20,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
