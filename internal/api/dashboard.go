package api

import (
	"errors"
	"net/http"

	"affiliate-api/internal/database"
	"affiliate-api/internal/response"
	"affiliate-api/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetAffiliateDashboard returns aggregated performance data for one affiliate
func GetAffiliateDashboard(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "Missing user_id")
		return
	}

	affiliate, err := database.GetAffiliateByUserID(userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			response.ErrorJSON(c, http.StatusNotFound, "Affiliate not found")
			return
		}
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load affiliate")
		return
	}

	dashboardService := services.NewDashboardService()
	dashboard, err := dashboardService.GetAffiliateDashboard(affiliate.ID, c.Query("timeframe"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidTimeframe) {
			response.ErrorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to build dashboard")
		return
	}

	response.SuccessJSON(c, dashboard)
}
