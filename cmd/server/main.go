package main

import (
	"context"
	"flag"
	"log"
	"os"

	"k8s.io/klog/v2"

	"github.com/scriber/fundcompare/config"
	"github.com/scriber/fundcompare/internal/eventbus"
	"github.com/scriber/fundcompare/internal/handler"
	"github.com/scriber/fundcompare/internal/job"
	"github.com/scriber/fundcompare/internal/pkg/database"
	"github.com/scriber/fundcompare/internal/pkg/extractor"
	"github.com/scriber/fundcompare/internal/pkg/storage"
	"github.com/scriber/fundcompare/internal/repository"
	"github.com/scriber/fundcompare/internal/router"
	"github.com/scriber/fundcompare/internal/service"
	"github.com/scriber/fundcompare/internal/service/orchestrator"
)

func main() {
	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	klog.V(6).Info("服务启动中...")

	cfg := config.GetConfig()

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// 初始化数据库
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化对象存储
	minioStorage, err := storage.NewMinioStorage(&cfg.MinIO)
	if err != nil {
		log.Fatalf("Failed to initialize minio: %v", err)
	}
	if err := minioStorage.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("Failed to ensure bucket: %v", err)
	}

	// 初始化 Repository
	projectRepo := repository.NewProjectRepository(db)
	fileRepo := repository.NewFileRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	moldRepo := repository.NewMoldRepository(db)
	taskRepo := repository.NewCompareTaskRepository(db)
	fileAnswerRepo := repository.NewFileAnswerRepository(db)

	// 初始化 Service
	bus := eventbus.NewFileEventBus()
	extractorClient := extractor.NewClient(&cfg.Extractor)
	fileService := service.NewFileService(fileRepo, questionRepo, moldRepo, minioStorage, extractorClient, bus)
	taskService := service.NewCompareTaskService(taskRepo, fileRepo, questionRepo, fileAnswerRepo, projectRepo, fileService)
	projectService := service.NewProjectService(projectRepo, taskRepo, fileAnswerRepo, fileService)
	service.RegisterHooks(bus, taskService)

	// 初始化全局比对编排器
	if err := orchestrator.InitGlobalOrchestrator(cfg.Worker.MaxWorkers, taskService); err != nil {
		log.Fatalf("Failed to initialize orchestrator: %v", err)
	}
	defer orchestrator.ShutdownGlobalOrchestrator()

	// 启动时重置比对中的残留任务
	resetStuckTasks(taskRepo)

	// 周期清理长时间卡在比对中的任务
	scheduler := job.NewScheduler(taskRepo)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// 初始化 Handler
	projectHandler := handler.NewProjectHandler(projectService, fileService)
	fileHandler := handler.NewFileHandler(fileService)
	taskHandler := handler.NewCompareTaskHandler(taskService)
	callbackHandler := handler.NewCallbackHandler(fileService)

	// 设置路由
	r := router.Setup(cfg, projectHandler, fileHandler, taskHandler, callbackHandler)

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// resetStuckTasks 进程异常退出会留下比对中的任务，启动时统一置为失败
func resetStuckTasks(taskRepo repository.CompareTaskRepository) {
	affected, err := taskRepo.ResetStuckTasks()
	if err != nil {
		klog.V(6).Infof("重置残留任务失败: %v", err)
		return
	}
	if affected > 0 {
		klog.V(6).Infof("启动时重置了 %d 个比对中的任务", affected)
	}
}
