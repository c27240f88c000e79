package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/certquiz-backend/internal/http/response"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
	"github.com/yungbote/certquiz-backend/internal/services"
)

type QuizHandler struct {
	log     *logger.Logger
	quizzes services.QuizService
	cards   services.ShareCardService
}

func NewQuizHandler(log *logger.Logger, quizzes services.QuizService, cards services.ShareCardService) *QuizHandler {
	return &QuizHandler{log: log.With("handler", "QuizHandler"), quizzes: quizzes, cards: cards}
}

// GET /api/quizzes?certification=
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	rows, err := h.quizzes.ListQuizzes(c.Request.Context(), strings.TrimSpace(c.Query("certification")))
	if err != nil {
		h.log.Error("ListQuizzes failed", "error", err)
		response.RespondAPIError(c, "list_quizzes_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"quizzes": rows})
}

// GET /api/quizzes/:id
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	quizID, ok := pathUUID(c, "id", "invalid_quiz_id")
	if !ok {
		return
	}
	q, err := h.quizzes.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		response.RespondAPIError(c, "load_quiz_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"quiz": q})
}

// POST /api/quiz-attempts
func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req services.SubmitAttemptInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.quizzes.SubmitAttempt(c.Request.Context(), userID, req)
	if err != nil {
		h.log.Warn("SubmitAttempt failed", "user_id", userID, "quiz_id", req.QuizID, "error", err)
		response.RespondAPIError(c, "submit_attempt_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{
		"attempt":         res.Attempt,
		"gamification":    res.Gamification,
		"analysis_status": res.AnalysisStatus,
	})
}

// GET /api/quiz-attempts/:id
func (h *QuizHandler) GetAttempt(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID, ok := pathUUID(c, "id", "invalid_attempt_id")
	if !ok {
		return
	}
	a, err := h.quizzes.GetAttempt(c.Request.Context(), userID, attemptID)
	if err != nil {
		response.RespondAPIError(c, "load_attempt_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"attempt": a})
}

// GET /api/quiz-attempts/:id/analysis
func (h *QuizHandler) GetAnalysis(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID, ok := pathUUID(c, "id", "invalid_attempt_id")
	if !ok {
		return
	}
	a, err := h.quizzes.GetAnalysis(c.Request.Context(), userID, attemptID)
	if err != nil {
		response.RespondAPIError(c, "load_analysis_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"analysis": a})
}

// POST /api/quiz-attempts/:id/analyze
func (h *QuizHandler) RequestAnalysis(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID, ok := pathUUID(c, "id", "invalid_attempt_id")
	if !ok {
		return
	}
	if err := h.quizzes.RequestAnalysis(c.Request.Context(), userID, attemptID); err != nil {
		response.RespondAPIError(c, "request_analysis_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"analysis_status": services.AnalysisQueued})
}

// GET /api/quiz-attempts/:id/card.png
func (h *QuizHandler) ShareCard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID, ok := pathUUID(c, "id", "invalid_attempt_id")
	if !ok {
		return
	}
	card, err := h.cards.Render(c.Request.Context(), userID, attemptID)
	if err != nil {
		response.RespondAPIError(c, "render_card_failed", err)
		return
	}
	if card.URL != "" {
		c.Header("X-Card-Url", card.URL)
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", card.PNG)
}
