package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	forumhandler "github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum/handler"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/mail"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/middleware"
)

type SendMailRequest struct {
	Receiver string `json:"receiver" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

type MailHandler struct {
	svc *mail.Service
}

func NewMailHandler(svc *mail.Service) *MailHandler {
	return &MailHandler{svc: svc}
}

// Register mounts the mailbox routes; all of them need auth.
func (h *MailHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	m := rg.Group("/mail", auth)
	m.GET("", h.Inbox)
	m.POST("", h.Send)
	m.DELETE("/:id", h.Delete)
}

func (h *MailHandler) Inbox(c *gin.Context) {
	user, _ := middleware.Username(c)
	msgs, err := h.svc.Inbox(c.Request.Context(), user, c.Query("after"))
	if err != nil {
		forumhandler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *MailHandler) Send(c *gin.Context) {
	var req SendMailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, _ := middleware.Username(c)
	m, err := h.svc.Send(c.Request.Context(), user, req.Receiver, req.Subject, req.Text)
	if err != nil {
		forumhandler.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mail": m})
}

func (h *MailHandler) Delete(c *gin.Context) {
	user, _ := middleware.Username(c)
	if err := h.svc.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		forumhandler.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
