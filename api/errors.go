package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soonab/Soonab-sub000/reputation"
	"github.com/soonab/Soonab-sub000/utils"
)

type errorCode string

const (
	errorInvalidParameters errorCode = "invalid_parameters"
	errorMissingIdentity   errorCode = "missing_identity"
	errorInvalidIdentity   errorCode = "invalid_identity"
	errorForbidden         errorCode = "forbidden"
	errorTooManyRequests   errorCode = "too_many_requests"
	errorInternalServer    errorCode = "internal_server"
)

var errorMessages = map[errorCode]string{
	errorInvalidParameters: "Invalid parameters.",
	errorMissingIdentity:   "An identity is required for this request.",
	errorInvalidIdentity:   "The identity header is malformed.",
	errorForbidden:         "You are not allowed to perform this action.",
	errorTooManyRequests:   "Too many requests, please slow down.",
	errorInternalServer:    "Something went wrong, please try again later.",
}

func language(c *gin.Context) []string {
	langs := make([]string, 0, 2)
	if lang := c.Query("lang"); lang != "" {
		langs = append(langs, lang)
	}
	if accept := c.GetHeader("Accept-Language"); accept != "" {
		langs = append(langs, accept)
	}
	return langs
}

func abortWithEncoding(c *gin.Context, httpCode int, code errorCode, errs ...error) {
	for _, err := range errs {
		c.Error(err)
	}

	message := utils.Localize(utils.NewLocalizer(language(c)...), "errors."+string(code), errorMessages[code], nil)
	c.AbortWithStatusJSON(httpCode, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// abortWithRetry answers 429 with a Retry-After hint relative to now.
func abortWithRetry(c *gin.Context, code errorCode, message string, retryAt, now time.Time) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if !retryAt.IsZero() {
		seconds := int64(math.Ceil(retryAt.Sub(now).Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.FormatInt(seconds, 10))
		body["retry_after"] = retryAt.Unix()
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": body})
}

// abortWithEngineError maps a rule failure to its status and localised
// message; anything else is an internal error.
func (s *Server) abortWithEngineError(c *gin.Context, err error) {
	e, ok := reputation.AsError(err)
	if !ok {
		log.WithError(err).WithField("path", c.FullPath()).Error("engine failure")
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	c.Error(err)
	message := utils.Localize(utils.NewLocalizer(language(c)...), "rules."+string(e.Rule), e.Message,
		map[string]interface{}{"Limit": e.Limit})
	if e.Kind == reputation.KindRateLimited {
		abortWithRetry(c, errorCode(e.Rule), message, e.RetryAt, s.engine.Now())
		return
	}

	c.AbortWithStatusJSON(e.Status(), gin.H{
		"error": gin.H{
			"code":    e.Rule,
			"message": message,
		},
	})
}
