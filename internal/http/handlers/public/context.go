package public

import (
	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return shared.GetContextUint(c, "user_id")
}

func summaryOptions(c *gin.Context) service.SummaryOptions {
	return service.SummaryOptions{BuyNow: c.Query("source") == "buy_now"}
}
