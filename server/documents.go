package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// uploadDocument accepts a multipart PDF, stores it under the upload
// directory as {loanID}_{filename}, and records it against the loan. The
// file's sha256 is captured so reprocessing identical uploads is detectable.
func (s *Server) uploadDocument(c *gin.Context) {
	loanID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetLoan(c.Request.Context(), loanID); err != nil {
		s.fail(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		s.fail(c, fmt.Errorf("creating upload dir: %w", err))
		return
	}
	storedPath := filepath.Join(s.uploadDir, fmt.Sprintf("%d_%s", loanID, filename))
	out, err := os.Create(storedPath)
	if err != nil {
		s.fail(c, fmt.Errorf("creating %s: %w", storedPath, err))
		return
	}

	hasher := sha256.New()
	_, err = io.Copy(io.MultiWriter(out, hasher), file)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(storedPath)
		s.fail(c, fmt.Errorf("storing %s: %w", storedPath, err))
		return
	}

	doc, err := s.store.SaveDocument(c.Request.Context(), loanID, filename, storedPath,
		hex.EncodeToString(hasher.Sum(nil)))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) listDocuments(c *gin.Context) {
	loanID, ok := pathID(c, "id")
	if !ok {
		return
	}
	docs, err := s.store.ListDocuments(c.Request.Context(), loanID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// documentFile serves the stored PDF back to the client.
func (s *Server) documentFile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := s.store.GetDocument(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if _, err := os.Stat(doc.StoredPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found on disk"})
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.File(doc.StoredPath)
}
