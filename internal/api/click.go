package api

import (
	"net/http"
	"net/url"

	"affiliate-api/internal/config"
	"affiliate-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Referral cookie lifetime in seconds (30 days, matches the attribution window)
const referralCookieMaxAge = 30 * 24 * 60 * 60

// HandleReferralClick records a referral link click and redirects to the landing page.
// This endpoint must always redirect, whatever happens to the tracking write:
// a broken promo link would burn the affiliate's traffic.
func HandleReferralClick(c *gin.Context) {
	code := c.Param("code")

	// Reuse the visitor key from a previous visit so repeat clicks correlate
	visitorKey, err := c.Cookie("affiliate_visitor")
	if err != nil || visitorKey == "" {
		visitorKey = uuid.NewString()
	}

	clickCtx := services.ClickContext{
		VisitorKey:  visitorKey,
		IP:          c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
		Referer:     c.GetHeader("Referer"),
		UTMSource:   c.Query("utm_source"),
		UTMMedium:   c.Query("utm_medium"),
		UTMCampaign: c.Query("utm_campaign"),
		LandingPage: c.Request.URL.String(),
	}

	// One insert, and TrackClick swallows every failure - the redirect
	// below happens no matter what
	clickService := services.NewClickService()
	clickService.TrackClick(code, clickCtx)

	// Last-click wins: overwrite any earlier referral cookie
	c.SetCookie("affiliate_ref", code, referralCookieMaxAge, "/", "", false, true)
	c.SetCookie("affiliate_visitor", visitorKey, referralCookieMaxAge, "/", "", false, true)

	c.Redirect(http.StatusFound, landingURLWithRef(code))
}

// landingURLWithRef appends the referral code to the configured landing page URL
func landingURLWithRef(code string) string {
	target, err := url.Parse(config.AppConfig.LandingURL)
	if err != nil {
		return config.AppConfig.LandingURL
	}
	query := target.Query()
	query.Set("ref", code)
	target.RawQuery = query.Encode()
	return target.String()
}
