package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/grocerycompare/price-service/docs"
)

// RegisterDocs serves the swagger UI under /docs.
func RegisterDocs(r gin.IRouter) {
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
