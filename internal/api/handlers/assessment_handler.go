package handlers

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/stageiq/stageiq/internal/cache"
	"github.com/stageiq/stageiq/internal/models"
	mongorepo "github.com/stageiq/stageiq/internal/repositories/mongo"
	"github.com/stageiq/stageiq/internal/services"
	"github.com/stageiq/stageiq/internal/storage"
	"github.com/stageiq/stageiq/internal/utils"
	"github.com/stageiq/stageiq/internal/workers"
)

type AssessmentHandler struct {
	svc      services.AssessmentService
	usage    services.UsageService
	timings  mongorepo.TimingRepository
	uploader storage.Uploader
	cache    cache.Cache
	redis    *redis.Client
}

func NewAssessmentHandler(
	svc services.AssessmentService,
	usage services.UsageService,
	timings mongorepo.TimingRepository,
	uploader storage.Uploader,
	reportCache cache.Cache,
	rdb *redis.Client,
) *AssessmentHandler {
	return &AssessmentHandler{
		svc:      svc,
		usage:    usage,
		timings:  timings,
		uploader: uploader,
		cache:    reportCache,
		redis:    rdb,
	}
}

type SubmitResponse struct {
	AssessmentID string                  `json:"assessment_id"`
	Status       models.AssessmentStatus `json:"status"`
}

var allowedRecordingExts = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".webm": "video/webm",
	".mp4":  "video/mp4",
}

// Submit accepts a recording (multipart "recording" field, or a JSON body
// referencing audio_url) and starts the assessment lifecycle. The usage
// gate is checked here, before any pipeline stage spends external API money.
func (h *AssessmentHandler) Submit(c *gin.Context) {
	const op = "AssessmentHandler.Submit"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	allowed, err := h.usage.MayConsume(c.Request.Context(), userID, models.CapabilityVideoAnalysis)
	if err != nil {
		writeError(c, err)
		return
	}
	if !allowed {
		// gate denial, not a pipeline failure: the job never starts
		writeError(c, utils.E(utils.CodeQuotaExceeded, op, "monthly analysis limit reached or plan inactive", nil))
		return
	}

	if fh, ferr := c.FormFile("recording"); ferr == nil {
		mode := models.AssessmentMode(c.PostForm("mode"))
		if mode == "" {
			mode = models.ModeFull
		}
		h.submitUpload(c, userID, mode, c.PostForm("language"), fh)
		return
	}

	var req struct {
		Mode     models.AssessmentMode `json:"mode"`
		Language string                `json:"language"`
		AudioURL string                `json:"audio_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "recording file or audio_url is required", err))
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = models.ModeFull
	}

	a, err := h.svc.Submit(c.Request.Context(), userID, mode, req.Language)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.svc.Accept(c.Request.Context(), a.ID, req.AudioURL); err != nil {
		writeError(c, err)
		return
	}
	if err := h.enqueue(c, a, map[string]any{"audio_url": req.AudioURL}); err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "failed to enqueue assessment", err))
		return
	}

	c.JSON(http.StatusAccepted, SubmitResponse{AssessmentID: a.ID, Status: models.StatusProcessing})
}

func (h *AssessmentHandler) submitUpload(c *gin.Context, userID string, mode models.AssessmentMode, language string, fh *multipart.FileHeader) {
	const op = "AssessmentHandler.Submit"

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	contentType, ok := allowedRecordingExts[ext]
	if !ok {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "unsupported recording format", nil))
		return
	}
	if fh.Size <= 0 || fh.Size > 100<<20 {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "recording too large (max 100MB)", nil))
		return
	}
	if h.uploader == nil {
		writeError(c, utils.E(utils.CodeInternal, op, "uploader is not configured", nil))
		return
	}

	a, err := h.svc.Submit(c.Request.Context(), userID, mode, language)
	if err != nil {
		writeError(c, err)
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	objectName := "recordings/" + userID + "/" + a.ID + ext
	storedPath, err := h.uploader.Upload(c.Request.Context(), objectName, contentType, file)
	if err != nil {
		_ = h.svc.Fail(c.Request.Context(), a.ID, "recording upload failed")
		writeError(c, utils.E(utils.CodeUnavailable, op, "failed to store recording", err))
		return
	}

	if err := h.svc.Accept(c.Request.Context(), a.ID, storedPath); err != nil {
		writeError(c, err)
		return
	}
	if err := h.enqueue(c, a, map[string]any{"recording_path": storedPath}); err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "failed to enqueue assessment", err))
		return
	}

	c.JSON(http.StatusAccepted, SubmitResponse{AssessmentID: a.ID, Status: models.StatusProcessing})
}

func (h *AssessmentHandler) enqueue(c *gin.Context, a *models.Assessment, audioFields map[string]any) error {
	fields := map[string]any{
		"assessment_id": a.ID,
		"user_id":       a.UserID,
		"mode":          string(a.Mode),
		"language":      a.Language,
		"ts_unix":       strconv.FormatInt(time.Now().UTC().Unix(), 10),
	}
	for k, v := range audioFields {
		fields[k] = v
	}
	return h.redis.XAdd(c.Request.Context(), &redis.XAddArgs{
		Stream: workers.StreamAssessments,
		Values: fields,
	}).Err()
}

// Status is the polling surface: one discrete status field per record.
func (h *AssessmentHandler) Status(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	id := c.Param("assessment_id")
	a, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if a.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "AssessmentHandler.Status", "forbidden", nil))
		return
	}

	c.JSON(http.StatusOK, services.StatusView{
		AssessmentID: a.ID,
		Status:       a.Status,
		ErrorMessage: a.ErrorMessage,
	})
}

// Result returns the full scored record; valid only once completed.
func (h *AssessmentHandler) Result(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	id := c.Param("assessment_id")

	if h.cache != nil {
		var cached models.Assessment
		if hit, _ := h.cache.GetJSON(c.Request.Context(), workers.ReportCacheKey(id), &cached); hit {
			if cached.UserID != userID {
				writeError(c, utils.E(utils.CodeForbidden, "AssessmentHandler.Result", "forbidden", nil))
				return
			}
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	a, err := h.svc.GetResult(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if a.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "AssessmentHandler.Result", "forbidden", nil))
		return
	}

	c.JSON(http.StatusOK, a)
}

func (h *AssessmentHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit := 50
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	rows, err := h.svc.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessments": rows})
}

// Timings returns the raw word-timing artifact for display; it may have
// expired even when the assessment itself is still readable.
func (h *AssessmentHandler) Timings(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	id := c.Param("assessment_id")
	a, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if a.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "AssessmentHandler.Timings", "forbidden", nil))
		return
	}

	artifact, err := h.timings.GetByAssessmentID(c.Request.Context(), id)
	if err != nil {
		writeError(c, utils.E(utils.CodeNotFound, "AssessmentHandler.Timings", "timing data not found or expired", err))
		return
	}

	c.JSON(http.StatusOK, artifact)
}
