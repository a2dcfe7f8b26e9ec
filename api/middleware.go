package api

import (
	"crypto/subtle"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/soonab/Soonab-sub000/reputation"
	"github.com/soonab/Soonab-sub000/schema"
	"github.com/soonab/Soonab-sub000/utils"
)

const (
	headerProfileID  = "X-Profile-ID"
	headerSessionID  = "X-Session-ID"
	headerAdminToken = "X-Admin-Token"

	headerRemainingWrites = "X-RateLimit-Remaining"

	burstLimiterName = "write"
)

// resolveIdentity sets "requester" from the identity headers. A profile
// takes precedence over a session.
func (s *Server) resolveIdentity(c *gin.Context) {
	var id schema.Identity
	switch {
	case c.GetHeader(headerProfileID) != "":
		id = schema.ProfileIdentity(c.GetHeader(headerProfileID))
	case c.GetHeader(headerSessionID) != "":
		id = schema.SessionIdentity(c.GetHeader(headerSessionID))
	default:
		c.Next()
		return
	}

	if !id.Valid() {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidIdentity, fmt.Errorf("invalid identity %q", id.Key()))
		return
	}
	c.Set("requester", id)
	c.Next()
}

func (s *Server) requireIdentity(c *gin.Context) {
	if _, ok := c.Get("requester"); !ok {
		abortWithEncoding(c, http.StatusUnauthorized, errorMissingIdentity)
		return
	}
	c.Next()
}

func requester(c *gin.Context) schema.Identity {
	id, _ := c.MustGet("requester").(schema.Identity)
	return id
}

func (s *Server) requireAdmin(c *gin.Context) {
	token := s.config.AdminToken()
	given := c.GetHeader(headerAdminToken)
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(given)) != 1 {
		abortWithEncoding(c, http.StatusForbidden, errorForbidden)
		return
	}
	c.Next()
}

// burstGuard caps writes per identity per minute before the store is hit.
func (s *Server) burstGuard(c *gin.Context) {
	id := requester(c)
	limit := s.config.BurstPerMinute()
	ok, windowEnd := s.limiter.Allow(burstLimiterName, id.Key(), limit, time.Minute)
	if !ok {
		message := utils.Localize(utils.NewLocalizer(language(c)...), "rules."+string(reputation.RuleBurst),
			"You are doing that too fast.", nil)
		abortWithRetry(c, errorCode(reputation.RuleBurst), message, windowEnd, s.engine.Now())
		return
	}
	if limit > 0 {
		c.Header(headerRemainingWrites, strconv.Itoa(s.limiter.Remaining(burstLimiterName, id.Key(), limit)))
	}
	c.Next()
}

// ipThrottle keeps one token bucket per client address.
type ipThrottle struct {
	mu       sync.Mutex
	rate     func() float64
	limiters map[string]*rate.Limiter
}

func newIPThrottle(r func() float64) *ipThrottle {
	return &ipThrottle{
		rate:     r,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (t *ipThrottle) allow(ip string) bool {
	rps := t.rate()
	if rps <= 0 {
		return true
	}
	limit := rate.Limit(rps)
	burst := int(math.Ceil(rps * 2))

	t.mu.Lock()
	l, ok := t.limiters[ip]
	if !ok {
		l = rate.NewLimiter(limit, burst)
		t.limiters[ip] = l
	} else if l.Limit() != limit {
		l.SetLimit(limit)
		l.SetBurst(burst)
	}
	t.mu.Unlock()

	return l.Allow()
}

// Sweep forgets clients whose bucket is full again.
func (t *ipThrottle) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for ip, l := range t.limiters {
		if l.Tokens() >= float64(l.Burst()) {
			delete(t.limiters, ip)
			n++
		}
	}
	return n
}

func (s *Server) throttleClient(c *gin.Context) {
	if !s.throttle.allow(c.ClientIP()) {
		abortWithEncoding(c, http.StatusTooManyRequests, errorTooManyRequests)
		return
	}
	c.Next()
}

// Sweep drops expired entries of both in-memory limiters.
func (s *Server) Sweep() int {
	return s.limiter.Sweep() + s.throttle.Sweep()
}
