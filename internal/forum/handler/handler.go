// Package handler exposes the question service over HTTP.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum/service"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/ids"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/logger"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/middleware"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the question routes on rg. auth guards every write;
// optionalAuth identifies signed-in viewers on the public view route.
func (h *Handler) Register(rg *gin.RouterGroup, auth, optionalAuth gin.HandlerFunc) {
	q := rg.Group("/questions")
	q.GET("", h.search)
	q.POST("", auth, h.createQuestion)
	q.GET("/:qid", h.getQuestion)
	q.PATCH("/:qid", auth, h.editQuestion)
	q.DELETE("/:qid", auth, h.deleteQuestion)
	q.POST("/:qid/view", optionalAuth, h.viewQuestion)
	q.POST("/:qid/vote", auth, h.vote)

	q.GET("/:qid/answers", h.listAnswers)
	q.POST("/:qid/answers", auth, h.addAnswer)
	q.PATCH("/:qid/answers/:aid", auth, h.patchAnswer)
	q.DELETE("/:qid/answers/:aid", auth, h.removeAnswer)
	q.POST("/:qid/answers/:aid/accept", auth, h.acceptAnswer)
	q.POST("/:qid/answers/:aid/vote", auth, h.vote)

	q.GET("/:qid/comments", h.listComments)
	q.POST("/:qid/comments", auth, h.addComment)
	q.DELETE("/:qid/comments/:cid", auth, h.removeComment)
	q.POST("/:qid/comments/:cid/vote", auth, h.vote)

	q.GET("/:qid/answers/:aid/comments", h.listComments)
	q.POST("/:qid/answers/:aid/comments", auth, h.addComment)
	q.DELETE("/:qid/answers/:aid/comments/:cid", auth, h.removeComment)
	q.POST("/:qid/answers/:aid/comments/:cid/vote", auth, h.vote)
}

// Fail writes err as a JSON error with the status its kind maps to.
func Fail(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Errorw("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func username(c *gin.Context) string {
	u, _ := middleware.Username(c)
	return u
}

func (h *Handler) search(c *gin.Context) {
	sort, err := forum.ParseSort(c.Query("sort"))
	if err != nil {
		Fail(c, err)
		return
	}
	after, err := ids.DecodeOptional("after", c.Query("after"))
	if err != nil {
		Fail(c, apperrors.FromID(err))
		return
	}
	query := forum.SearchQuery{AfterID: after, Sort: sort}
	if raw := c.Query("match"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &query.Match); err != nil {
			Fail(c, apperrors.Invalid(apperrors.ErrInvalidMatch, "match", nil, "must be a JSON object"))
			return
		}
	}
	if raw := c.Query("regexMatch"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &query.RegexMatch); err != nil {
			Fail(c, apperrors.Invalid(apperrors.ErrInvalidMatch, "regexMatch", nil, "must be a JSON object of strings"))
			return
		}
	}
	questions, err := h.svc.Search(c.Request.Context(), query)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

type questionRequest struct {
	Title string `json:"title" binding:"required"`
	Text  string `json:"text" binding:"required"`
}

func (h *Handler) createQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	q, err := h.svc.CreateQuestion(c.Request.Context(), username(c), req.Title, req.Text)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question": q})
}

func (h *Handler) getQuestion(c *gin.Context) {
	q, err := h.svc.GetQuestion(c.Request.Context(), c.Param("qid"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": q})
}

type editRequest struct {
	Title  *string       `json:"title"`
	Text   *string       `json:"text"`
	Status *forum.Status `json:"status" binding:"omitempty,oneof=open closed protected"`
}

func (h *Handler) editQuestion(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := h.svc.EditQuestion(c.Request.Context(), username(c), c.Param("qid"), req.Title, req.Text, req.Status)
	if err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteQuestion(c *gin.Context) {
	if err := h.svc.DeleteQuestion(c.Request.Context(), username(c), c.Param("qid")); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// viewQuestion is public; signed-in viewers are keyed by username and
// anonymous ones by address.
func (h *Handler) viewQuestion(c *gin.Context) {
	viewer := username(c)
	if viewer == "" {
		viewer = "ip:" + c.ClientIP()
	}
	counted, err := h.svc.ViewQuestion(c.Request.Context(), viewer, c.Param("qid"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counted": counted})
}

type voteRequest struct {
	Operation string `json:"operation" binding:"required"`
	Target    string `json:"target" binding:"required"`
}

func (h *Handler) vote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := forum.ParseVote(req.Operation, req.Target)
	if err != nil {
		Fail(c, err)
		return
	}
	p, err := service.ParsePath(c.Param("qid"), c.Param("aid"), c.Param("cid"))
	if err != nil {
		Fail(c, err)
		return
	}
	if err := h.svc.ApplyVote(c.Request.Context(), username(c), p, v); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) listAnswers(c *gin.Context) {
	answers, err := h.svc.ListAnswers(c.Request.Context(), c.Param("qid"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answers": answers})
}

func (h *Handler) addAnswer(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a, err := h.svc.AddAnswer(c.Request.Context(), username(c), c.Param("qid"), req.Text)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"answer": a})
}

func (h *Handler) patchAnswer(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.PatchAnswer(c.Request.Context(), username(c), c.Param("qid"), c.Param("aid"), req.Text); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) removeAnswer(c *gin.Context) {
	if err := h.svc.RemoveAnswer(c.Request.Context(), username(c), c.Param("qid"), c.Param("aid")); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) acceptAnswer(c *gin.Context) {
	if err := h.svc.AcceptAnswer(c.Request.Context(), username(c), c.Param("qid"), c.Param("aid")); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listComments(c *gin.Context) {
	comments, err := h.svc.ListComments(c.Request.Context(), c.Param("qid"), c.Param("aid"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *Handler) addComment(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cm, err := h.svc.AddComment(c.Request.Context(), username(c), c.Param("qid"), c.Param("aid"), req.Text)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": cm})
}

func (h *Handler) removeComment(c *gin.Context) {
	err := h.svc.RemoveComment(c.Request.Context(), username(c), c.Param("qid"), c.Param("aid"), c.Param("cid"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
