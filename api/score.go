package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soonab/Soonab-sub000/schema"
)

const defaultHistoryRange = 30 * 24 * time.Hour

// subject resolves the :subject parameter. Post subjects are addressed by
// their post id.
func subject(c *gin.Context) (schema.RatingSurface, string) {
	surface := schema.RatingSurface(c.DefaultQuery("surface", string(schema.RatingSurfacePeer)))
	target := c.Param("subject")
	if surface == schema.RatingSurfacePost {
		return surface, schema.PostSubject(target)
	}
	return surface, target
}

func (s *Server) readScore(c *gin.Context) {
	surface, target := subject(c)

	view, err := s.engine.ReadScore(c.Request.Context(), surface, target)
	if err != nil {
		s.abortWithEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) scoreHistory(c *gin.Context) {
	var params struct {
		Start int64 `form:"start"`
		End   int64 `form:"end"`
	}

	if err := c.BindQuery(&params); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	end := s.engine.Now()
	if params.End > 0 {
		end = time.Unix(params.End, 0).UTC()
	}
	start := end.Add(-defaultHistoryRange)
	if params.Start > 0 {
		start = time.Unix(params.Start, 0).UTC()
	}

	surface, target := subject(c)
	avg, err := s.engine.ScoreAverage(c.Request.Context(), surface, target, start, end)
	if err != nil {
		s.abortWithEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"surface": surface,
		"target":  target,
		"start":   start.Unix(),
		"end":     end.Unix(),
		"average": avg,
	})
}
