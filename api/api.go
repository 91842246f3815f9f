package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pixloom/pixloom"
	"github.com/pixloom/pixloom/api/middleware"
	"github.com/pixloom/pixloom/config"
)

type Api struct {
	pixloom *pixloom.Pixloom
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/register", a.Register)
	router.POST("/login", a.Login)
	router.POST("/logout", a.Logout)
	router.GET("/packages", a.GetPackages)

	auth := router.Group("/", middleware.SessionAuthMiddleware())

	auth.GET("/me", a.Me)

	auth.POST("/images/upload", a.UploadImage)
	auth.GET("/images", a.ListImages)
	auth.POST("/videos/upload", a.UploadVideo)
	auth.GET("/videos", a.ListVideos)

	auth.POST("/images/:id/enhance", a.EnhanceImage)
	auth.POST("/images/:id/restore", a.RestoreImage)
	auth.POST("/images/:id/colorize", a.ColorizeImage)
	auth.POST("/images/:id/remove-object", a.RemoveObject)
	auth.POST("/generations/image", a.GenerateImage)
	auth.POST("/generations/video", a.GenerateVideo)
	auth.POST("/videos/:id/audio", a.GenerateAudio)

	auth.GET("/jobs/:id", a.GetJob)

	admin := auth.Group("/admin", middleware.AdminOnly())
	admin.POST("/credits", a.TopUpCredits)

	return a.router
}

func NewAPI(p *pixloom.Pixloom) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{pixloom: p, router: r}
}
