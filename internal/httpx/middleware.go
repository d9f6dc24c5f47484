package httpx

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MikeMC777/ordenes-storefront/internal/apperr"
)

const ridKey = "rid"

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ridKey, rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rid, _ := c.Get(ridKey)
		log.Printf("[http] rid=%v %s %s status=%d dur=%s",
			rid, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
		for _, e := range c.Errors {
			log.Printf("[http] rid=%v error: %v", rid, e.Err)
		}
	}
}

// ErrorBody is the JSON shape of every error the storefront returns.
type ErrorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Retryable bool   `json:"retryable"`
}

// Fail aborts the request with err rendered as an ErrorBody and a status
// chosen from its kind.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	body := ErrorBody{Error: err.Error(), Retryable: apperr.Retryable(err)}
	if k := apperr.KindOf(err); k != 0 {
		body.Kind = k.String()
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), body)
}

// BadRequest is for malformed local input that never reached the core.
func BadRequest(c *gin.Context, msg string) {
	Fail(c, apperr.Validation("", msg))
}
