package optimizations

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/extract"
	"resume-optimizer/internal/llm"
	"resume-optimizer/internal/scrape"
	"resume-optimizer/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches optimization routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/optimize", h.optimize)
	rg.POST("/optimize-json", h.optimizeJSON)
	rg.GET("/optimizations", h.list)
	rg.GET("/optimizations/:id", h.get)
	rg.DELETE("/optimizations/:id", h.delete)
}

type optimizationResponse struct {
	ID                string    `json:"id"`
	JobURL            string    `json:"jobUrl,omitempty"`
	JobPostingContent string    `json:"jobPostingContent"`
	OptimizedResume   string    `json:"optimizedResume"`
	Suggestions       []string  `json:"suggestions"`
	MatchScore        float64   `json:"matchScore"`
	CreatedAt         time.Time `json:"createdAt"`
	Warning           string    `json:"warning,omitempty"`
}

type summaryResponse struct {
	ID         string    `json:"id"`
	JobURL     string    `json:"jobUrl,omitempty"`
	MatchScore float64   `json:"matchScore"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toResponse(opt Optimization, warning string) optimizationResponse {
	suggestions := opt.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return optimizationResponse{
		ID:                opt.ID,
		JobURL:            opt.JobURL,
		JobPostingContent: opt.JobPostingContent,
		OptimizedResume:   opt.OptimizedResume,
		Suggestions:       suggestions,
		MatchScore:        opt.MatchScore,
		CreatedAt:         opt.CreatedAt,
		Warning:           warning,
	}
}

// optimize accepts the multipart form variant: a resume file upload or pasted
// resume text, plus a job URL or pasted posting text.
func (h *Handler) optimize(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	in := OptimizeInput{
		ResumeText: strings.TrimSpace(c.PostForm("resume_text")),
		JobURL:     strings.TrimSpace(c.PostForm("job_url")),
		JobText:    strings.TrimSpace(c.PostForm("job_text")),
	}

	if fileHeader, err := c.FormFile("resume_file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "unable to read resume file", nil)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "unable to read resume file", nil)
			return
		}
		in.ResumeFile = data
		in.ResumeFileName = fileHeader.Filename
		in.ResumeMimeType = fileHeader.Header.Get("Content-Type")
	}

	h.runOptimize(c, in)
}

type optimizeJSONRequest struct {
	JobURL     string `json:"jobUrl"`
	JobText    string `json:"jobText"`
	ResumeText string `json:"resumeText"`
}

// optimizeJSON accepts the JSON variant: pasted resume text only.
func (h *Handler) optimizeJSON(c *gin.Context) {
	var req optimizeJSONRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}

	h.runOptimize(c, OptimizeInput{
		ResumeText: strings.TrimSpace(req.ResumeText),
		JobURL:     strings.TrimSpace(req.JobURL),
		JobText:    strings.TrimSpace(req.JobText),
	})
}

func (h *Handler) runOptimize(c *gin.Context, in OptimizeInput) {
	record, err := h.Svc.Optimize(c.Request.Context(), in)
	if err != nil {
		// The run itself succeeded; only history persistence failed. Return
		// the paid-for result with a warning instead of discarding it.
		if errors.Is(err, ErrPersistence) && record.ID != "" {
			c.Set("optimizationId", record.ID)
			respond.JSON(c, http.StatusOK, toResponse(record, "optimization succeeded but saving to history failed"))
			return
		}
		respondPipelineError(c, err)
		return
	}

	c.Set("optimizationId", record.ID)
	respond.JSON(c, http.StatusOK, toResponse(record, ""))
}

func (h *Handler) list(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 10)
	offset := parseIntQuery(c, "offset", 0)

	summaries, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to list optimizations", nil)
		return
	}

	out := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, summaryResponse{
			ID:         s.ID,
			JobURL:     s.JobURL,
			MatchScore: s.MatchScore,
			CreatedAt:  s.CreatedAt,
		})
	}
	respond.OK(c, gin.H{"optimizations": out})
}

func (h *Handler) get(c *gin.Context) {
	record, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "optimization not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to load optimization", nil)
		return
	}
	respond.OK(c, toResponse(record, ""))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "optimization not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to delete optimization", nil)
		return
	}
	respond.OK(c, gin.H{"message": "optimization deleted"})
}

// respondPipelineError maps the failure taxonomy onto HTTP statuses,
// separating fix-your-input, try-again-later and system problems.
func respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, scrape.ErrInvalidURL):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, extract.ErrEmptyInput):
		respond.Error(c, http.StatusBadRequest, ErrorCodeEmptyInput, "provided text is empty", nil)
	case errors.Is(err, extract.ErrUnreadableDocument):
		respond.Error(c, http.StatusBadRequest, ErrorCodeUnreadableDocument, "could not extract text from the uploaded file", nil)
	case errors.Is(err, scrape.ErrFetchBlocked):
		respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeFetchBlocked,
			"the job posting page could not be fetched; paste the posting text instead", nil)
	case errors.Is(err, scrape.ErrFetchTimeout):
		respond.Error(c, http.StatusGatewayTimeout, ErrorCodeFetchTimeout,
			"fetching the job posting timed out; try again or paste the posting text", nil)
	case errors.Is(err, llm.ErrProviderThrottled):
		respond.Error(c, http.StatusTooManyRequests, ErrorCodeProviderThrottled,
			"the optimization service is busy; try again shortly", nil)
	case errors.Is(err, llm.ErrProviderTimeout):
		respond.Error(c, http.StatusGatewayTimeout, ErrorCodeProviderTimeout,
			"the optimization service timed out; try again shortly", nil)
	case errors.Is(err, llm.ErrProviderUnavailable):
		respond.Error(c, http.StatusBadGateway, ErrorCodeProviderUnavailable,
			"the optimization service is unavailable", nil)
	case errors.Is(err, llm.ErrProviderRejected), errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusInternalServerError, ErrorCodeProviderRejected,
			"the optimization service rejected the request", nil)
	case errors.Is(err, ErrMalformedOutput):
		respond.Error(c, http.StatusBadGateway, ErrorCodeMalformedOutput,
			"the optimization service returned an unusable response", nil)
	case errors.Is(err, ErrPersistence):
		respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to save optimization", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "unexpected error", nil)
	}
}

func parseIntQuery(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return def
	}
	return val
}
