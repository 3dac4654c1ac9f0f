package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"canvasquest/internal/middleware"
	"canvasquest/internal/service"
)

type claimArtRequest struct {
	ArtistName string  `json:"artist_name" binding:"required"`
	Email      *string `json:"email"`
	Password   *string `json:"password"`
}

type loginRequest struct {
	ArtistName string `json:"artist_name" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (h HandlerSet) ClaimArt(c *gin.Context) {
	var req claimArtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, invalidInput(err))
		return
	}

	result, err := h.auth.Signup(c.Request.Context(), service.CreateUserInput{
		DisplayName: req.ArtistName,
		Email:       req.Email,
		Password:    req.Password,
	}, clientInfo(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTokenResponse(result))
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, invalidInput(err))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.ArtistName, req.Password, clientInfo(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(result))
}

func (h HandlerSet) Logout(c *gin.Context) {
	ok, err := h.auth.Logout(c.Request.Context(), middleware.AccessToken(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "logout_failed"})
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "logged out", Success: true})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h HandlerSet) DeleteMe(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	if err := h.auth.DeleteAccount(c.Request.Context(), user.ID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "account deleted", Success: true})
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	sessions, err := h.auth.Sessions(c.Request.Context(), user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	current := middleware.AccessToken(c)
	now := h.auth.Now()
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:           s.ID,
			State:        string(s.StateAt(now)),
			Current:      s.Token == current,
			IPAddress:    s.IPAddress,
			UserAgent:    s.UserAgent,
			CreatedAt:    s.CreatedAt,
			ExpiresAt:    s.ExpiresAt,
			LastActivity: s.LastActivity,
		})
	}
	c.JSON(http.StatusOK, out)
}

func newTokenResponse(result service.AuthResult) tokenResponse {
	return tokenResponse{
		AccessToken: result.Token,
		TokenType:   "bearer",
		ExpiresAt:   result.Session.ExpiresAt,
		User:        newUserResponse(result.User),
	}
}

func clientInfo(c *gin.Context) service.ClientInfo {
	var info service.ClientInfo
	if ip := c.ClientIP(); ip != "" {
		info.IP = &ip
	}
	if ua := c.Request.UserAgent(); ua != "" {
		info.UserAgent = &ua
	}
	return info
}
