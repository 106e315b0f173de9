package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/scriber/fundcompare/config"
	"github.com/scriber/fundcompare/internal/handler"
)

func Setup(
	cfg *config.Config,
	projectHandler *handler.ProjectHandler,
	fileHandler *handler.FileHandler,
	taskHandler *handler.CompareTaskHandler,
	callbackHandler *handler.CallbackHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	r.Use(gzip.Gzip(gzip.BestCompression))

	api := r.Group("/api/v1")
	{
		projects := api.Group("/projects")
		{
			projects.POST("", projectHandler.Create)
			projects.POST("/xingyun", projectHandler.Xingyun)
			projects.GET("", projectHandler.List)
			projects.GET("/samples", projectHandler.Samples)
			projects.GET("/:id", projectHandler.Get)
			projects.PUT("/:id", projectHandler.Rename)
			projects.DELETE("/:id", projectHandler.Delete)
			projects.POST("/:id/files", fileHandler.Upload)
		}

		files := api.Group("/files")
		{
			files.GET("/:id", fileHandler.Get)
			files.GET("/:id/download", fileHandler.Download)
			files.DELETE("/:id", fileHandler.Delete)
		}

		tasks := api.Group("/compare-tasks")
		{
			tasks.POST("", taskHandler.Create)
			tasks.GET("", taskHandler.List)
			tasks.GET("/queue", taskHandler.QueueStatus)
			tasks.POST("/cleanup", taskHandler.CleanupStuck)
			tasks.GET("/:id", taskHandler.Get)
			tasks.PUT("/:id", taskHandler.Update)
			tasks.DELETE("/:id", taskHandler.Delete)
			tasks.POST("/:id/start", taskHandler.Start)
			tasks.POST("/:id/redo", taskHandler.Redo)
			tasks.POST("/:id/chapter-redo", taskHandler.RedoChapter)
			tasks.GET("/:id/file-answers/:fid", taskHandler.FileAnswer)
			tasks.GET("/:id/consistency-answer", taskHandler.ConsistencyAnswer)
			tasks.GET("/:id/chapter-answer", taskHandler.ChapterAnswer)
		}

		callbacks := api.Group("/callbacks")
		{
			callbacks.POST("/parse", callbackHandler.Parse)
			callbacks.POST("/predict", callbackHandler.Predict)
		}
	}

	return r
}
