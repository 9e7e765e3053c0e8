package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"lexcite-backend/repository"
	"lexcite-backend/service"

	"github.com/gin-gonic/gin"
)

const defaultEdgeLimit = 50

// CaseHandler handles HTTP requests for corpus cases and their
// citation graph views
type CaseHandler struct {
	caseRepo       *repository.CaseRepository
	citationRepo   *repository.CitationRepository
	treatment      *service.TreatmentService
	summaryService *service.SummaryService
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(
	caseRepo *repository.CaseRepository,
	citationRepo *repository.CitationRepository,
	treatment *service.TreatmentService,
	summaryService *service.SummaryService,
) *CaseHandler {
	return &CaseHandler{
		caseRepo:       caseRepo,
		citationRepo:   citationRepo,
		treatment:      treatment,
		summaryService: summaryService,
	}
}

// GetCase handles GET /api/v1/cases/:id
func (h *CaseHandler) GetCase(c *gin.Context) {
	id := c.Param("id")

	cs, err := h.caseRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CASE_NOT_FOUND",
					"message": "Case not found",
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

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cs,
	})
}

// GetCitations handles GET /api/v1/cases/:id/citations
// Returns both directions: cases citing this one and the authorities
// this case cites.
func (h *CaseHandler) GetCitations(c *gin.Context) {
	id := c.Param("id")
	limit := parseLimit(c.Query("limit"), defaultEdgeLimit)

	if _, err := h.caseRepo.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CASE_NOT_FOUND",
					"message": "Case not found",
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

	citing, err := h.citationRepo.EdgesCiting(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	citedBy, err := h.citationRepo.EdgesCitedBy(c.Request.Context(), id, limit)
	if err != nil {
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
		"data": gin.H{
			"case_id":  id,
			"citing":   citing,
			"cited_by": citedBy,
		},
	})
}

// GetCitator handles GET /api/v1/cases/:id/citator
func (h *CaseHandler) GetCitator(c *gin.Context) {
	id := c.Param("id")

	result, err := h.treatment.Citator(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCaseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CASE_NOT_FOUND",
					"message": "Case not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CITATOR_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// GetSummary handles GET /api/v1/cases/:id/summary
func (h *CaseHandler) GetSummary(c *gin.Context) {
	id := c.Param("id")

	summary, err := h.summaryService.GetSummary(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SUMMARY_NOT_FOUND",
					"message": "No summary has been generated for this case",
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

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    summary,
	})
}

// SummarizeCase handles POST /api/v1/cases/:id/summarize
func (h *CaseHandler) SummarizeCase(c *gin.Context) {
	id := c.Param("id")
	force := c.Query("force") == "true"

	summary, err := h.summaryService.Summarize(c.Request.Context(), id, force)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCaseNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CASE_NOT_FOUND",
					"message": "Case not found",
				},
			})
		case errors.Is(err, service.ErrSummaryFailed):
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SUMMARY_FAILED",
					"message": err.Error(),
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": err.Error(),
				},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    summary,
	})
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 200 {
		return fallback
	}
	return limit
}
