package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// routeAttributes are path parameters copied onto the New Relic transaction.
var routeAttributes = map[string]string{
	"id": "resourceId",
}

// TransactionAttributes tags the nrgin transaction with the request's
// resource id so traces can be searched by trip, driver or payment.
// It must run after nrgin.Middleware and is a no-op without it.
func TransactionAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		for param, attr := range routeAttributes {
			if v := c.Param(param); v != "" {
				txn.AddAttribute(attr, v)
			}
		}
		if route := c.FullPath(); route != "" {
			txn.AddAttribute("route", route)
		}

		c.Next()

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
