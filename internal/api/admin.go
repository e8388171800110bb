package api

import (
	"net/http"
	"strconv"

	"affiliate-api/internal/database"
	"affiliate-api/internal/response"
	"affiliate-api/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// parseIDParam parses the :id path parameter
func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

// ListAffiliates lists affiliate accounts, optionally filtered by status
func ListAffiliates(c *gin.Context) {
	status := c.Query("status")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	affiliates, err := database.ListAffiliates(status, limit, offset)
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to list affiliates")
		return
	}

	response.SuccessJSON(c, gin.H{
		"affiliates": affiliates,
		"count":      len(affiliates),
	})
}

// ApproveAffiliate activates a pending affiliate account
func ApproveAffiliate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	affiliateService := services.NewAffiliateService()
	affiliate, err := affiliateService.Approve(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			response.ErrorJSON(c, http.StatusNotFound, "Affiliate not found")
			return
		}
		response.ErrorJSON(c, http.StatusConflict, err.Error())
		return
	}

	response.SuccessJSON(c, affiliate)
}

// SuspendAffiliate suspends an affiliate, stopping further accrual
func SuspendAffiliate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	affiliateService := services.NewAffiliateService()
	if err := affiliateService.Suspend(id); err != nil {
		if err == gorm.ErrRecordNotFound {
			response.ErrorJSON(c, http.StatusNotFound, "Affiliate not found")
			return
		}
		response.ErrorJSON(c, http.StatusConflict, err.Error())
		return
	}

	response.SuccessJSON(c, gin.H{"message": "Affiliate suspended"})
}

// TerminateAffiliate terminates an affiliate account
func TerminateAffiliate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	affiliateService := services.NewAffiliateService()
	if err := affiliateService.Terminate(id); err != nil {
		if err == gorm.ErrRecordNotFound {
			response.ErrorJSON(c, http.StatusNotFound, "Affiliate not found")
			return
		}
		response.ErrorJSON(c, http.StatusConflict, err.Error())
		return
	}

	response.SuccessJSON(c, gin.H{"message": "Affiliate terminated"})
}

// RecalculateAffiliateEarnings rebuilds the earnings counters from the
// commission ledger. The counters are a cache, the ledger is the truth.
func RecalculateAffiliateEarnings(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	commissionService := services.NewCommissionService()
	affiliate, err := commissionService.RecalculateEarnings(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			response.ErrorJSON(c, http.StatusNotFound, "Affiliate not found")
			return
		}
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to recalculate earnings")
		return
	}

	response.SuccessJSON(c, affiliate)
}

// ConfirmCommission moves a pending commission to confirmed
func ConfirmCommission(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	commissionService := services.NewCommissionService()
	if err := commissionService.ConfirmTransaction(id); err != nil {
		response.ErrorJSON(c, http.StatusConflict, err.Error())
		return
	}

	response.SuccessJSON(c, gin.H{"message": "Commission confirmed"})
}

// MarkCommissionPaid moves a confirmed commission to paid after payout
func MarkCommissionPaid(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	commissionService := services.NewCommissionService()
	if err := commissionService.MarkTransactionPaid(id); err != nil {
		response.ErrorJSON(c, http.StatusConflict, err.Error())
		return
	}

	response.SuccessJSON(c, gin.H{"message": "Commission marked paid"})
}

// ListPrograms lists the configured commission programs
func ListPrograms(c *gin.Context) {
	programs, err := database.ListPrograms()
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to list programs")
		return
	}

	response.SuccessJSON(c, programs)
}
