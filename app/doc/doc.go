package doc

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"
)

// Handler serves the generated OpenAPI document and a viewer for it.
type Handler struct {
	env string
}

func (h *Handler) serveSwaggerJSON(c *gin.Context) {
	originalJSON, err := swag.ReadDoc()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "API documentation has not been generated"})
		return
	}

	var swaggerData map[string]interface{}
	if err := json.Unmarshal([]byte(originalJSON), &swaggerData); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse Swagger doc"})
		return
	}

	swaggerData["servers"] = serversFor(h.env)

	components, _ := swaggerData["components"].(map[string]interface{})
	if components == nil {
		components = make(map[string]interface{})
		swaggerData["components"] = components
	}
	schemes, _ := components["securitySchemes"].(map[string]interface{})
	if schemes == nil {
		schemes = make(map[string]interface{})
		components["securitySchemes"] = schemes
	}
	schemes["BearerAuth"] = map[string]interface{}{
		"type":         "http",
		"scheme":       "bearer",
		"bearerFormat": "PASETO",
		"description":  "PASETO v2 local token issued by cmd/tokengen",
	}

	modifiedJSON, err := json.Marshal(swaggerData)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate modified Swagger doc"})
		return
	}

	c.Data(http.StatusOK, "application/json", modifiedJSON)
}

func serversFor(environment string) []map[string]interface{} {
	servers := []map[string]interface{}{
		{"url": "http://localhost:8080/api/v1", "description": "Local Development Server"},
	}
	switch environment {
	case "staging":
		servers = append(servers, map[string]interface{}{
			"url": "https://settlement.staging.internal/api/v1", "description": "Staging Server",
		})
	case "production":
		servers = append(servers, map[string]interface{}{
			"url": "https://settlement.internal/api/v1", "description": "Production Server",
		})
	}
	return servers
}

const elementsHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Settlement Engine API</title>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <script src="https://unpkg.com/@stoplight/elements/web-components.min.js"></script>
    <link rel="stylesheet" href="https://unpkg.com/@stoplight/elements/styles.min.css">
    <style>
        body { margin: 0; padding: 0; height: 100vh; }
        elements-api { height: 100%; }
    </style>
</head>
<body>
    <elements-api apiDescriptionUrl="/swagger/doc.json" router="hash" layout="sidebar"></elements-api>
</body>
</html>`

func serveElements(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(elementsHTML))
}

// Init mounts the documentation routes for the given environment.
func Init(r *gin.Engine, env string) {
	h := &Handler{env: env}
	r.GET("/swagger/doc.json", h.serveSwaggerJSON)
	r.GET("/docs/*any", serveElements)
}
