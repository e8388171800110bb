package api

import (
	"net/http"

	"affiliate-api/internal/services"

	"github.com/gin-gonic/gin"
)

// TrackSignupRequest represents a signup attribution request
type TrackSignupRequest struct {
	ReferralCode   string `json:"referral_code" binding:"required"`
	UserID         string `json:"user_id" binding:"required"`
	OrganizationID string `json:"organization_id,omitempty"`
	Email          string `json:"email,omitempty"`
	IP             string `json:"ip,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	UTMSource      string `json:"utm_source,omitempty"`
	UTMMedium      string `json:"utm_medium,omitempty"`
	UTMCampaign    string `json:"utm_campaign,omitempty"`
	LandingPage    string `json:"landing_page,omitempty"`
}

// TrackSignup attributes a fresh signup to an affiliate.
// Always returns 200 once the request parses: the application backend fires
// this after account creation and must never roll a signup back over it.
func TrackSignup(c *gin.Context) {
	var req TrackSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request format: " + err.Error(),
		})
		return
	}

	attributionService := services.NewAttributionService()
	attributionService.TrackSignup(req.ReferralCode, req.UserID, req.OrganizationID, services.SignupData{
		Email:       req.Email,
		IP:          req.IP,
		UserAgent:   req.UserAgent,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
		LandingPage: req.LandingPage,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Signup recorded",
	})
}
