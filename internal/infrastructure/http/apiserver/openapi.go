package apiserver

import (
	"embed"
	"net/http"

	"go.uber.org/zap"
)

//go:embed openapi.yaml
var openAPISpec embed.FS

// OpenAPIHandler serves the OpenAPI description of the discovery API
type OpenAPIHandler struct {
	logger *zap.Logger
	spec   []byte
}

// NewOpenAPIHandler creates a new OpenAPI handler
func NewOpenAPIHandler(logger *zap.Logger) *OpenAPIHandler {
	specData, err := openAPISpec.ReadFile("openapi.yaml")
	if err != nil {
		logger.Error("Failed to read OpenAPI spec", zap.Error(err))
		specData = []byte("# OpenAPI spec not available\n")
	}

	return &OpenAPIHandler{
		logger: logger,
		spec:   specData,
	}
}

// ServeOpenAPISpec serves the OpenAPI specification in YAML format
func (h *OpenAPIHandler) ServeOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.spec); err != nil {
		h.logger.Debug("Failed to write OpenAPI spec", zap.Error(err))
	}
}
