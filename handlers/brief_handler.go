package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"lexcite-backend/models"
	"lexcite-backend/repository"
	"lexcite-backend/service"
	"lexcite-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxBriefSize = 10 * 1024 * 1024 // 10MB

// BriefHandler handles HTTP requests for brief checking
type BriefHandler struct {
	briefService *service.BriefService
	docRepo      *repository.DocumentRepository
	storage      storage.Storage
}

// NewBriefHandler creates a new brief handler
func NewBriefHandler(briefService *service.BriefService, docRepo *repository.DocumentRepository, store storage.Storage) *BriefHandler {
	return &BriefHandler{
		briefService: briefService,
		docRepo:      docRepo,
		storage:      store,
	}
}

// CheckBriefRequest represents the JSON request body for brief checking
type CheckBriefRequest struct {
	Text      string `json:"text" binding:"required"`
	LegalArea string `json:"legal_area"`
}

// CheckBrief handles POST /api/v1/briefcheck. The brief arrives either
// as a JSON body with the text inline, or as a multipart upload whose
// original file is archived in document storage.
func (h *BriefHandler) CheckBrief(c *gin.Context) {
	var req service.AnalyzeBriefRequest

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		text, docID, ok := h.readUpload(c)
		if !ok {
			return
		}
		req.Text = text
		req.LegalArea = c.PostForm("legal_area")
		req.DocumentID = docID
	} else {
		var body CheckBriefRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_REQUEST",
					"message": err.Error(),
				},
			})
			return
		}
		req.Text = body.Text
		req.LegalArea = body.LegalArea
	}

	analysis, err := h.briefService.AnalyzeBrief(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyBrief) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "EMPTY_BRIEF",
					"message": err.Error(),
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ANALYSIS_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    analysis,
	})
}

// GetDocument handles GET /api/v1/documents/:id, streaming back a
// previously uploaded brief
func (h *BriefHandler) GetDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid document ID format",
			},
		})
		return
	}

	doc, err := h.docRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Document not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	reader, err := h.storage.Download(c.Request.Context(), doc.StoragePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DOWNLOAD_FAILED",
				"message": fmt.Sprintf("Failed to download document: %v", err),
			},
		})
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.DataFromReader(http.StatusOK, doc.Size, doc.MimeType, reader, nil)
}

// DeleteDocument handles DELETE /api/v1/documents/:id, removing both
// the stored file and its record
func (h *BriefHandler) DeleteDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid document ID format",
			},
		})
		return
	}

	doc, err := h.docRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Document not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	if err := h.storage.Delete(c.Request.Context(), doc.StoragePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DELETE_FAILED",
				"message": fmt.Sprintf("Failed to delete stored file: %v", err),
			},
		})
		return
	}

	if err := h.docRepo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"id": id},
	})
}

// readUpload stores the uploaded brief and returns its text. Responds
// with the appropriate error itself when ok is false.
func (h *BriefHandler) readUpload(c *gin.Context) (string, *uuid.UUID, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "File is required",
			},
		})
		return "", nil, false
	}

	if fileHeader.Size > maxBriefSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File size exceeds maximum of %d bytes", int64(maxBriefSize)),
			},
		})
		return "", nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_OPEN_ERROR",
				"message": err.Error(),
			},
		})
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_READ_ERROR",
				"message": err.Error(),
			},
		})
		return "", nil, false
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "text/plain"
	}

	docID := uuid.New()
	storagePath, err := h.storage.Upload(c.Request.Context(), docID, fileHeader.Filename, strings.NewReader(string(data)))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": fmt.Sprintf("Failed to store brief: %v", err),
			},
		})
		return "", nil, false
	}

	doc := &models.Document{
		ID:          docID,
		Filename:    fileHeader.Filename,
		MimeType:    mimeType,
		Size:        fileHeader.Size,
		StoragePath: storagePath,
	}
	if err := h.docRepo.Create(c.Request.Context(), doc); err != nil {
		h.storage.Delete(c.Request.Context(), storagePath)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": fmt.Sprintf("Failed to save brief record: %v", err),
			},
		})
		return "", nil, false
	}

	return string(data), &doc.ID, true
}
