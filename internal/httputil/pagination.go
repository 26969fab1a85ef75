package httputil

import (
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"
)

// PageLimits bounds the limit query parameter of a listing.
type PageLimits struct {
	Default int
	Max     int
}

// InvitationPageLimits bounds invitation listings.
var InvitationPageLimits = PageLimits{Default: 50, Max: 100}

// Page is the offset/limit window requested by a listing call.
type Page struct {
	Offset int
	Limit  int
}

// ParsePage reads the offset and limit query parameters. A missing offset is 0 and a
// missing limit is limits.Default. The returned error lists every invalid parameter.
func ParsePage(c *gin.Context, limits PageLimits) (Page, error) {
	offset, offsetErr := queryInt(c, "offset", 0)
	limit, limitErr := queryInt(c, "limit", limits.Default)

	limitMsg := "must be between 1 and " + strconv.Itoa(limits.Max)
	errs := validation.Errors{
		"offset": firstError(offsetErr, validation.Validate(offset,
			validation.Min(0).Error("must be a non-negative integer"),
		)),
		"limit": firstError(limitErr, validation.Validate(limit,
			validation.Required.Error(limitMsg),
			validation.Min(1).Error(limitMsg),
			validation.Max(limits.Max).Error(limitMsg),
		)),
	}
	if err := errs.Filter(); err != nil {
		return Page{}, err
	}
	return Page{Offset: offset, Limit: limit}, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.NewError("validation_is_int", "must be an integer")
	}
	return n, nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
