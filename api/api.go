package api

import (
	"github.com/gin-gonic/gin"

	agentx "github.com/MRT0B13/AgentX"
	"github.com/MRT0B13/AgentX/api/middleware"
	"github.com/MRT0B13/AgentX/config"
)

type Api struct {
	agentx *agentx.AgentX
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/launchpacks", a.CreateLaunchPack)
	router.GET("/launchpacks/:id", a.GetLaunchPack)
	router.PUT("/launchpacks/:id", a.UpdateLaunchPack)
	router.GET("/launchpacks/:id/export", a.ExportLaunchPack)

	router.POST("/launchpacks/:id/launch", a.LaunchToken)
	router.POST("/launchpacks/:id/publish/telegram", a.PublishTelegram)
	router.POST("/launchpacks/:id/publish/x", a.PublishX)
	return a.router
}

func NewAPI(service *agentx.AgentX) (*Api, error) {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.AdminKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{agentx: service, router: r}, nil
}
