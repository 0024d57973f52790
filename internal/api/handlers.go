package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pharmaguard-client/internal/domain"
	"github.com/pharmaguard-client/internal/export"
	"github.com/pharmaguard-client/internal/logging"
	"github.com/pharmaguard-client/internal/middleware"
	"github.com/pharmaguard-client/internal/service"
)

const sessionKey = "session"

// SessionView is the full state of a session as returned by the gateway.
type SessionView struct {
	ID string `json:"id"`
	service.Snapshot
	Items []service.ResultItem `json:"items"`
	Stats service.Stats        `json:"stats"`
}

type drugsRequest struct {
	Drugs string `json:"drugs"`
}

type pendingRequest struct {
	Text string `json:"text"`
}

func viewOf(sess *Session) SessionView {
	items := sess.Workflow.Results().Items()
	if items == nil {
		items = []service.ResultItem{}
	}
	return SessionView{
		ID:       sess.ID,
		Snapshot: sess.Workflow.Snapshot(),
		Items:    items,
		Stats:    sess.Workflow.Results().Stats(),
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":          message,
		"correlation_id": c.GetString(middleware.CorrelationKey),
	})
}

func respondValidation(c *gin.Context, verr *domain.ValidationError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":          verr.Message,
		"field":          verr.Field,
		"reason":         verr.Reason,
		"correlation_id": c.GetString(middleware.CorrelationKey),
	})
}

// setAttachment marks the response as a download named fileName.
func setAttachment(c *gin.Context, fileName string) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
}

func currentSession(c *gin.Context) *Session {
	return c.MustGet(sessionKey).(*Session)
}

// loadSession resolves the :id parameter or answers 404.
func (s *Server) loadSession(c *gin.Context) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "session not found")
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.sessions.Create()
	c.JSON(http.StatusCreated, viewOf(sess))
}

func (s *Server) handleGetSession(c *gin.Context) {
	c.JSON(http.StatusOK, viewOf(currentSession(c)))
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	s.sessions.Delete(currentSession(c).ID)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAddDrugs(c *gin.Context) {
	var req drugsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := currentSession(c)
	sess.Workflow.AddDrugs(req.Drugs)
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) handleSetPending(c *gin.Context) {
	var req pendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := currentSession(c)
	sess.Workflow.SetPending(req.Text)
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) handleCommitPending(c *gin.Context) {
	sess := currentSession(c)
	sess.Workflow.AddPending()
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) handleRemoveDrug(c *gin.Context) {
	sess := currentSession(c)
	sess.Workflow.RemoveDrug(c.Param("drug"))
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) handleStageFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondValidation(c, domain.NewValidationError("file", domain.ReasonMissingFile, nil))
		return
	}

	candidate := domain.UploadedFile{Name: header.Filename, Size: header.Size}
	if err := service.NewFileValidator().Validate(candidate); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			respondValidation(c, verr)
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	f, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	sess := currentSession(c)
	err = sess.Workflow.StageFile(domain.UploadedFile{
		Name:    header.Filename,
		Size:    header.Size,
		Content: content,
	})
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		respondValidation(c, verr)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) handleClearFile(c *gin.Context) {
	sess := currentSession(c)
	sess.Workflow.ClearFile()
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) handleSubmit(c *gin.Context) {
	sess := currentSession(c)
	// The analysis runs to completion even if the caller disconnects; the
	// transport timeout bounds it.
	err := sess.Workflow.Submit(context.WithoutCancel(c.Request.Context()))

	var verr *domain.ValidationError
	var serr *domain.SubmissionError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, viewOf(sess))
	case errors.Is(err, domain.ErrSubmissionInFlight):
		respondError(c, http.StatusConflict, "an analysis is already in progress")
	case errors.As(err, &verr):
		respondValidation(c, verr)
	case errors.As(err, &serr):
		respondError(c, http.StatusBadGateway, serr.Message())
	default:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleToggle(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid result index")
		return
	}
	expanded := currentSession(c).Workflow.Results().Toggle(index)
	c.JSON(http.StatusOK, gin.H{"index": index, "expanded": expanded})
}

// selectedResult resolves the optional ?index= query. ok is false when a
// response has already been written.
func selectedResult(c *gin.Context, results *service.ResultSet) (result domain.AnalysisResult, single bool, ok bool) {
	raw, present := c.GetQuery("index")
	if !present {
		return domain.AnalysisResult{}, false, true
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid result index")
		return domain.AnalysisResult{}, false, false
	}
	result, found := results.Result(index)
	if !found {
		respondError(c, http.StatusNotFound, "result not found")
		return domain.AnalysisResult{}, false, false
	}
	return result, true, true
}

// handleExport serves one result (?index=n) or the whole set as an indented
// JSON attachment.
func (s *Server) handleExport(c *gin.Context) {
	results := currentSession(c).Workflow.Results()
	result, single, ok := selectedResult(c, results)
	if !ok {
		return
	}

	var payload interface{}
	fileName := export.AllResultsFileName
	if single {
		payload = result
		fileName = export.ResultFileName(result)
	} else {
		all := results.Results()
		if all == nil {
			all = []domain.AnalysisResult{}
		}
		payload = all
	}

	data, err := export.Marshal(payload)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	setAttachment(c, fileName)
	c.Data(http.StatusOK, "application/json", data)
}

// handleCopy returns the clipboard text for one result or the whole set along
// with the notification the client should show.
func (s *Server) handleCopy(c *gin.Context) {
	results := currentSession(c).Workflow.Results()
	result, single, ok := selectedResult(c, results)
	if !ok {
		return
	}

	clipboard := &export.MemoryClipboard{}
	notifier := &logging.BufferNotifier{}
	exporter := export.NewExporter("", notifier, clipboard)

	var err error
	if single {
		err = exporter.CopyResult(result)
	} else {
		err = exporter.CopyAll(results.Results())
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"text":          clipboard.Text(),
		"notifications": notifier.Drain(),
	})
}

func (s *Server) handleReport(c *gin.Context) {
	if s.reports == nil {
		respondError(c, http.StatusServiceUnavailable, "report service not configured")
		return
	}
	results := currentSession(c).Workflow.Results()
	if results.Len() == 0 {
		respondError(c, http.StatusConflict, "no results to report")
		return
	}

	doc, err := results.RenderReport(c.Request.Context(), s.reports)
	if err != nil {
		s.logger.WithError(err).Warn("Report generation failed")
		respondError(c, http.StatusBadGateway, err.Error())
		return
	}
	setAttachment(c, service.ReportFileName)
	c.Data(http.StatusOK, "application/pdf", doc)
}

func (s *Server) handleListHistory(c *gin.Context) {
	if s.history == nil {
		respondError(c, http.StatusNotFound, "history is disabled")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		respondError(c, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		respondError(c, http.StatusBadRequest, "invalid offset")
		return
	}

	ctx := c.Request.Context()
	records, err := s.history.List(ctx, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.history.Count(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*domain.SubmissionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "total": total})
}

func (s *Server) handleGetHistory(c *gin.Context) {
	if s.history == nil {
		respondError(c, http.StatusNotFound, "history is disabled")
		return
	}
	rec, err := s.history.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		respondError(c, http.StatusNotFound, "record not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}
