// controllers/submission_listing.go - Public submissions listing

package controllers

import (
	"context"
	"net/http"
	"strconv"

	"submission-portal-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Lister is satisfied by *services.ListingService.
type Lister interface {
	List(ctx context.Context, q services.ListQuery) (*services.ListResult, error)
}

type ListingController struct {
	listing Lister
	logger  *zap.Logger
}

func NewListingController(listing Lister, logger *zap.Logger) *ListingController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingController{listing: listing, logger: logger}
}

// List returns one page of submissions. Bad page or limit values fall back
// to the defaults instead of failing the request.
func (lc *ListingController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageLimit)))
	sort := c.DefaultQuery("sort", string(services.SortNewest))

	res, err := lc.listing.List(c.Request.Context(), services.ListQuery{
		Page:  page,
		Limit: limit,
		Sort:  sort,
	})
	if err != nil {
		lc.logger.Error("failed to list submissions", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"message":   "Internal server error",
			"timestamp": nowTimestamp(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       res.Items,
		"pagination": res.Pagination,
		"meta": gin.H{
			"timestamp": nowTimestamp(),
			"sort":      res.Sort,
		},
	})
}
