package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	memberdomain "github.com/otherscentered/platform/internal/member/domain"
)

type createMemberRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	Email       string `json:"email" binding:"required"`
}

func (s *Server) CreateMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	email := strings.TrimSpace(req.Email)
	if !strings.Contains(email, "@") {
		AbortWithError(c, memberdomain.ErrInvalidEmail)
		return
	}

	member := &memberdomain.Member{
		ID:          s.genID.Generate(),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Email:       email,
	}
	if err := s.members.Insert(c.Request.Context(), s.db, member); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}
