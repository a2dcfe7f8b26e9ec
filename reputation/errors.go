package reputation

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a business rule failure.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindForbidden   Kind = "forbidden"
	KindRateLimited Kind = "rate_limited"
)

// Rule names the check that rejected a request.
type Rule string

const (
	RuleInvalidValue        Rule = "invalid_value"
	RuleInvalidIdentity     Rule = "invalid_identity"
	RuleInvalidSurface      Rule = "invalid_surface"
	RuleInvalidTarget       Rule = "invalid_target"
	RuleInvalidThread       Rule = "invalid_thread"
	RuleInvalidMerge        Rule = "invalid_merge"
	RuleSelfAction          Rule = "self_action"
	RuleInteractionRequired Rule = "interaction_required"
	RuleDailyPostQuota      Rule = "daily_post_quota"
	RuleDailyReplyQuota     Rule = "daily_reply_quota"
	RuleThreadCap           Rule = "thread_cap"
	RuleHourlyRatingCap     Rule = "hourly_rating_cap"
	RulePairCooldown        Rule = "pair_cooldown"
	RuleBurst               Rule = "burst"
)

// Error is an expected rejection. Infrastructure failures are never
// reported as *Error.
type Error struct {
	Kind    Kind
	Rule    Rule
	Message string
	// Limit is the quota or cap that was reached, if any.
	Limit int
	// RetryAt is zero when the window end is not known precisely.
	RetryAt time.Time
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

// Status is the HTTP status hint of the failure.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// AsError unwraps err into a rule failure.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func invalid(rule Rule, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func forbidden(rule Rule, message string) *Error {
	return &Error{Kind: KindForbidden, Rule: rule, Message: message}
}

// Limited builds a rate limit failure. A zero retryAt means no hint.
func Limited(rule Rule, limit int, message string, retryAt time.Time) *Error {
	return &Error{Kind: KindRateLimited, Rule: rule, Message: message, Limit: limit, RetryAt: retryAt}
}
