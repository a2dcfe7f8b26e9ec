package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soonab/Soonab-sub000/reputation"
	"github.com/soonab/Soonab-sub000/schema"
)

func (s *Server) submitRating(c *gin.Context) {
	var body struct {
		Surface      schema.RatingSurface `json:"surface"`
		Target       string               `json:"target"`
		TargetAuthor string               `json:"target_author"`
		Value        int                  `json:"value"`
	}

	if err := c.BindJSON(&body); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}
	if body.Surface == "" {
		body.Surface = schema.RatingSurfacePeer
	}

	result, err := s.engine.SubmitRating(c.Request.Context(), reputation.RatingRequest{
		Surface:      body.Surface,
		Rater:        requester(c),
		Target:       body.Target,
		TargetAuthor: body.TargetAuthor,
		Value:        body.Value,
	})
	if err != nil {
		s.abortWithEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
