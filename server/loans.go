package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/loantwindb/loantwin-go/dlr"
	"github.com/loantwindb/loantwin-go/store"
)

type createLoanRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) createLoan(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	loan, err := s.store.CreateLoan(c.Request.Context(), req.Name, time.Now().UTC())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (s *Server) getLoan(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	loan, err := s.store.GetLoan(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// getDLR returns the stored record with the loan id spliced in, so clients
// can correlate without a second request.
func (s *Server) getDLR(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	blob, err := s.store.DLRBlob(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	var payload map[string]any
	if err := sonic.Unmarshal(blob, &payload); err != nil {
		s.fail(c, fmt.Errorf("decoding stored dlr: %w", err))
		return
	}
	payload["loan_id"] = id
	c.JSON(http.StatusOK, payload)
}

func (s *Server) listClauses(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	clauses, err := s.store.ListClauses(c.Request.Context(), id, c.Query("query"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, clauses)
}

func (s *Server) listObligations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	obligations, err := s.store.ListObligations(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, obligations)
}

func (s *Server) tradePack(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	checks, err := s.store.TradePack(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, checks)
}

func (s *Server) exportXLSX(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	blob, err := s.store.DLRBlob(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	var record dlr.DLR
	if err := sonic.Unmarshal(blob, &record); err != nil {
		s.fail(c, fmt.Errorf("decoding stored dlr: %w", err))
		return
	}
	data, err := dlr.ExportXLSX(&record)
	if err != nil {
		s.fail(c, fmt.Errorf("building workbook: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="loan_%d_dlr.xlsx"`, id))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// processDocument runs extraction synchronously: callers poll document
// status only when they upload through other channels.
func (s *Server) processDocument(c *gin.Context) {
	loanID, ok := pathID(c, "id")
	if !ok {
		return
	}
	docID, ok := pathID(c, "docID")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := s.store.GetLoan(ctx, loanID); err != nil {
		s.fail(c, err)
		return
	}
	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if doc.LoanID != loanID {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not linked to loan"})
		return
	}

	if err := s.store.SetDocumentStatus(ctx, docID, store.StatusProcessing, ""); err != nil {
		s.fail(c, err)
		return
	}

	record, clauses, err := s.processor.Process(ctx, doc.StoredPath)
	if err != nil {
		if stErr := s.store.SetDocumentStatus(ctx, docID, store.StatusFailed, err.Error()); stErr != nil {
			s.logger.Error("failed to record processing failure", zap.Error(stErr))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Processing failed: " + err.Error()})
		return
	}

	if err := s.store.SaveExtraction(ctx, loanID, docID, record, clauses); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "loan_id": loanID, "document_id": docID})
}

// pathID parses a numeric path parameter, answering 400 itself on garbage.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
