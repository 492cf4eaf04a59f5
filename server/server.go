// Package server exposes the loan workspace over HTTP: loan CRUD, document
// upload, synchronous extraction, and the derived views (DLR, clauses,
// obligations, trade pack, spreadsheet export).
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/loantwindb/loantwin-go/dlr"
	"github.com/loantwindb/loantwin-go/store"
)

// Processor turns a stored document into a DLR and its clauses.
// *loansaf.Extractor is the production implementation.
type Processor interface {
	Process(ctx context.Context, path string) (*dlr.DLR, []dlr.Clause, error)
}

// Server holds the handler dependencies.
type Server struct {
	store     *store.Store
	processor Processor
	logger    *zap.Logger
	uploadDir string
	maxUpload int64
}

// New builds a Server. maxUploadMB bounds the accepted request body for
// document uploads.
func New(st *store.Store, processor Processor, logger *zap.Logger, uploadDir string, maxUploadMB int64) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:     st,
		processor: processor,
		logger:    logger,
		uploadDir: uploadDir,
		maxUpload: maxUploadMB << 20,
	}
}

// Router assembles the gin engine with middleware and all routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery(s.logger))
	router.Use(RequestLogger(s.logger))
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/loans", s.createLoan)
		api.GET("/loans/:id", s.getLoan)
		api.GET("/loans/:id/dlr", s.getDLR)
		api.GET("/loans/:id/clauses", s.listClauses)
		api.GET("/loans/:id/obligations", s.listObligations)
		api.GET("/loans/:id/trade-pack", s.tradePack)
		api.GET("/loans/:id/export.xlsx", s.exportXLSX)
		api.POST("/loans/:id/documents", s.uploadDocument)
		api.GET("/loans/:id/documents", s.listDocuments)
		api.POST("/loans/:id/process-document/:docID", s.processDocument)
		api.GET("/documents/:id/file", s.documentFile)
	}
	return router
}

// fail maps store errors onto HTTP statuses. Anything unrecognized is a 500
// with the detail kept out of the response.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrDLRNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": "DLR not ready. Upload and process a document first."})
	default:
		s.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", GetRequestID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
