package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// QueryInt reads a non-negative integer query parameter. Missing,
// malformed and negative values all fall back to def.
func QueryInt(c *gin.Context, key string, def int) int {
	raw, ok := c.GetQuery(key)
	if !ok {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return def
	}
	return val
}
