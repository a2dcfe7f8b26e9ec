package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soonab/Soonab-sub000/schema"
)

func (s *Server) postQuota(c *gin.Context) {
	decision, err := s.engine.PostQuota(c.Request.Context(), requester(c))
	if err != nil {
		s.abortWithEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// createPost gates a post the caller is about to persist and records it.
func (s *Server) createPost(c *gin.Context) {
	author := requester(c)

	decision, err := s.engine.CanCreatePost(c.Request.Context(), author)
	if err != nil {
		s.abortWithEngineError(c, err)
		return
	}

	activity, err := s.engine.RecordActivity(c.Request.Context(), schema.Activity{
		Author: author.Key(),
		Kind:   schema.ActivityKindPost,
	})
	if err != nil {
		s.abortWithEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"activity":  activity,
		"quota":     decision.Quota,
		"used":      decision.Used + 1,
		"remaining": decision.Remaining - 1,
	})
}

func (s *Server) createReply(c *gin.Context) {
	var body struct {
		ThreadID     string `json:"thread_id"`
		ParentAuthor string `json:"parent_author"`
	}

	if err := c.BindJSON(&body); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	author := requester(c)
	decision, err := s.engine.CanCreateReply(c.Request.Context(), author, body.ThreadID)
	if err != nil {
		s.abortWithEngineError(c, err)
		return
	}

	activity, err := s.engine.RecordActivity(c.Request.Context(), schema.Activity{
		Author:       author.Key(),
		Kind:         schema.ActivityKindReply,
		ThreadID:     body.ThreadID,
		ParentAuthor: body.ParentAuthor,
	})
	if err != nil {
		s.abortWithEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"activity":         activity,
		"quota":            decision.Quota,
		"used":             decision.Used + 1,
		"remaining":        decision.Remaining - 1,
		"thread_used":      decision.ThreadUsed + 1,
		"thread_remaining": decision.ThreadRemaining - 1,
	})
}

// mergeIdentity merges the session in X-Session-ID into the profile in
// X-Profile-ID once the visitor has signed up.
func (s *Server) mergeIdentity(c *gin.Context) {
	session := schema.SessionIdentity(c.GetHeader(headerSessionID))
	profile := schema.ProfileIdentity(c.GetHeader(headerProfileID))

	result, err := s.engine.MergeIdentity(c.Request.Context(), session, profile)
	if err != nil {
		s.abortWithEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
