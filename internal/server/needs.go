package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	needdomain "github.com/otherscentered/platform/internal/need/domain"
	"github.com/otherscentered/platform/internal/search"
)

type submitNeedRequest struct {
	Title                string `json:"title" binding:"required"`
	Category             string `json:"category"`
	City                 string `json:"city"`
	Zip                  string `json:"zip"`
	OwnerID              string `json:"owner_id" binding:"required"`
	ContactEmail         string `json:"contact_email"`
	AmountRequestedCents int64  `json:"amount_requested_cents"`
	DueDate              string `json:"due_date"`
	Notes                string `json:"notes"`
}

func (s *Server) SubmitNeed(c *gin.Context) {
	var req submitNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ownerID, err := parseID(req.OwnerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		dueDate = &parsed
	}

	need, err := s.needSvc.Submit(c.Request.Context(), needdomain.SubmitNeedRequest{
		Title:                req.Title,
		Category:             req.Category,
		City:                 req.City,
		Zip:                  req.Zip,
		OwnerID:              ownerID,
		ContactEmail:         req.ContactEmail,
		AmountRequestedCents: req.AmountRequestedCents,
		DueDate:              dueDate,
		Notes:                req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, need)
}

type publishNeedRequest struct {
	ActorID string `json:"actor_id"`
}

func (s *Server) PublishNeed(c *gin.Context) {
	needID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req publishNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	actorID, _ := snowflake.ParseString(strings.TrimSpace(req.ActorID))

	need, err := s.needSvc.Publish(c.Request.Context(), needdomain.PublishNeedRequest{
		NeedID:  needID,
		ActorID: actorID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, need)
}

type claimNeedRequest struct {
	HelperID         string `json:"helper_id" binding:"required"`
	AmountGivenCents *int64 `json:"amount_given_cents"`
}

func (s *Server) ClaimNeed(c *gin.Context) {
	needID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req claimNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	helperID, err := parseID(req.HelperID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	need, err := s.needSvc.Claim(c.Request.Context(), needdomain.ClaimNeedRequest{
		NeedID:           needID,
		HelperID:         helperID,
		AmountGivenCents: req.AmountGivenCents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, need)
}

type verifyNeedRequest struct {
	ActorID              string `json:"actor_id"`
	AmountConfirmedCents *int64 `json:"amount_confirmed_cents"`
	ProofReference       string `json:"proof_reference"`
}

func (s *Server) VerifyNeed(c *gin.Context) {
	needID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req verifyNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	actorID, _ := snowflake.ParseString(strings.TrimSpace(req.ActorID))

	need, err := s.needSvc.Verify(c.Request.Context(), needdomain.VerifyNeedRequest{
		NeedID:               needID,
		ActorID:              actorID,
		AmountConfirmedCents: req.AmountConfirmedCents,
		ProofReference:       req.ProofReference,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, need)
}

type closeNeedRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
}

func (s *Server) CloseNeed(c *gin.Context) {
	needID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req closeNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	actorID, err := parseID(req.ActorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	need, err := s.needSvc.Close(c.Request.Context(), needdomain.CloseNeedRequest{
		NeedID:  needID,
		ActorID: actorID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, need)
}

func (s *Server) GetNeed(c *gin.Context) {
	needID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	need, err := s.needSvc.GetByID(c.Request.Context(), needID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, need)
}

func (s *Server) ListNeedEvents(c *gin.Context) {
	needID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	events, err := s.needSvc.Events(c.Request.Context(), needID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) SearchNeeds(c *gin.Context) {
	radius, _ := strconv.ParseFloat(c.Query("radius"), 64)

	var statuses []needdomain.Status
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st := needdomain.Status(strings.TrimSpace(part))
			if st.Valid() {
				statuses = append(statuses, st)
			}
		}
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	needs, err := s.searchSvc.Search(c.Request.Context(), search.Request{
		Statuses:    statuses,
		Category:    c.Query("category"),
		City:        c.Query("city"),
		Urgency:     c.Query("urgency"),
		Amount:      c.Query("amount"),
		Zip:         c.Query("zip"),
		RadiusMiles: radius,
		Limit:       limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"needs": needs})
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, needdomain.ErrInvalidID
	}
	return id, nil
}
