package api

import (
	"net/http"

	"affiliate-api/internal/response"
	"affiliate-api/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// EnrollRequest represents an affiliate enrollment request
type EnrollRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	PaymentEmail  string `json:"payment_email,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

// EnrollAffiliate enrolls a user into the affiliate program.
// The account starts pending and earns nothing until an admin approves it.
func EnrollAffiliate(c *gin.Context) {
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	affiliateService := services.NewAffiliateService()
	affiliate, err := affiliateService.Enroll(req.UserID, req.PaymentEmail, req.PaymentMethod)
	if err != nil {
		response.ErrorJSON(c, http.StatusConflict, err.Error())
		return
	}

	response.CreatedJSON(c, affiliate)
}

// GetAffiliateProfile returns the affiliate account for a user, referral link included
func GetAffiliateProfile(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "Missing user_id")
		return
	}

	affiliateService := services.NewAffiliateService()
	profile, err := affiliateService.GetProfile(userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			response.ErrorJSON(c, http.StatusNotFound, "Affiliate not found")
			return
		}
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load affiliate")
		return
	}

	response.SuccessJSON(c, profile)
}
