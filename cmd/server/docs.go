package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jack/shortlink-analytics/internal/config"
	"github.com/jack/shortlink-analytics/internal/model"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	openAPIRoute = "/api/docs/openapi.yaml"
	docsRoute    = "/docs"
)

// mountDocs publishes the OpenAPI document and the Swagger UI that renders it.
// The document is read once at startup; a missing file is logged and answered
// with 404 rather than failing the server.
func mountDocs(router *gin.Engine, cfg *config.DocsConfig) {
	document, err := os.ReadFile(cfg.OpenAPIPath)
	if err != nil {
		log.Printf("openapi document unavailable: path=%s err=%v", cfg.OpenAPIPath, err)
	}

	router.GET(openAPIRoute, func(c *gin.Context) {
		if document == nil {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Error:   "not_found",
				Message: "API document is not available",
			})
			return
		}
		c.Data(http.StatusOK, "application/yaml", document)
	})

	if !cfg.UIEnabled() {
		router.GET(docsRoute+"/*any", func(c *gin.Context) {
			c.JSON(http.StatusForbidden, model.ErrorResponse{
				Error:   "docs_disabled",
				Message: "Set AUTH_BASIC_USER and AUTH_BASIC_PASSWORD to enable the API docs",
			})
		})
		return
	}

	ui := ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL(openAPIRoute),
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.DocExpansion("list"),
	)

	docs := router.Group(docsRoute, gin.BasicAuth(gin.Accounts{
		cfg.BasicUser: cfg.BasicPassword,
	}))
	docs.GET("/*any", func(c *gin.Context) {
		if c.Param("any") == "/" {
			c.Redirect(http.StatusMovedPermanently, docsRoute+"/index.html")
			return
		}
		ui(c)
	})
}
