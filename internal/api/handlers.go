package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gwas-risk-engine/internal/domain"
	genotypefile "github.com/gwas-risk-engine/pkg/genotype"
)

// searchWindow bounds how many raw rows one browse query pulls from the
// source before in-memory filtering. Narrower predicates are pushed down,
// so the window rarely truncates real result sets.
const searchWindow = 10000

// studyView is one search result row, optionally annotated against the
// session's genotype.
type studyView struct {
	domain.NormalizedStudy
	HasMatch *bool `json:"has_match,omitempty"`
}

// handleSearchStudies runs the filter/sort pipeline over a catalog window
func (s *Server) handleSearchStudies(c *gin.Context) {
	filters := parseFilters(c)
	sortSpec := domain.SortSpec{
		Key:       domain.SortKey(c.DefaultQuery("sort", string(domain.SortRelevance))),
		Direction: domain.SortDirection(c.Query("direction")),
	}
	offset := intQuery(c, "offset", 0)
	limit := intQuery(c, "limit", 0)

	raw, err := s.source.FetchBatch(c.Request.Context(), filters, 0, searchWindow)
	if err != nil {
		s.fail(c, http.StatusBadGateway, domain.ErrSourceError, "study source unavailable", err)
		return
	}

	normalized := make([]domain.NormalizedStudy, 0, len(raw))
	for i := range raw {
		normalized = append(normalized, s.normalizer.Normalize(raw[i]))
	}

	result := s.pipeline.Apply(normalized, filters, sortSpec)

	shown := result.Shown
	if limit > 0 && limit < shown {
		shown = limit
	}
	if offset > result.Total {
		offset = result.Total
	}
	end := offset + shown
	if end > result.Total {
		end = result.Total
	}
	page := result.Studies[offset:end]

	var genotypes domain.GenotypeMap
	if sessionID := c.Query("session_id"); sessionID != "" {
		if g, err := s.genotypes.Get(c.Request.Context(), sessionID); err == nil {
			genotypes = g
		}
	}

	views := make([]studyView, 0, len(page))
	for i := range page {
		v := studyView{NormalizedStudy: page[i]}
		if genotypes != nil {
			has := s.pipeline.MatchesGenotype(genotypes, page[i].SNPListText)
			v.HasMatch = &has
		}
		views = append(views, v)
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   result.Total,
		"shown":   len(views),
		"offset":  offset,
		"studies": views,
	})
}

// handleUploadGenotype parses an uploaded genotype export into a session
func (s *Server) handleUploadGenotype(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		s.fail(c, http.StatusBadRequest, domain.ErrInvalidInput, "genotype file is required", err)
		return
	}

	f, err := file.Open()
	if err != nil {
		s.fail(c, http.StatusBadRequest, domain.ErrUploadFailed, "could not read upload", err)
		return
	}
	defer f.Close()

	parsed, err := genotypefile.Parse(f)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, domain.ErrUploadFailed, "could not parse genotype file", err)
		return
	}

	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx := c.Request.Context()
	if err := s.genotypes.Put(ctx, sessionID, parsed); err != nil {
		s.fail(c, http.StatusInternalServerError, domain.ErrInternalServer, "could not store genotype", err)
		return
	}
	// A new genotype invalidates every previously computed match.
	if err := s.matches.Clear(ctx); err != nil {
		s.fail(c, http.StatusInternalServerError, domain.ErrDatabaseError, "could not reset match results", err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"snps":       len(parsed),
		"filename":   file.Filename,
	}).Info("Genotype uploaded")

	c.JSON(http.StatusCreated, gin.H{
		"session_id": sessionID,
		"snps":       len(parsed),
	})
}

// handleClearGenotype removes a session's genotype and its match results
func (s *Server) handleClearGenotype(c *gin.Context) {
	sessionID := c.Param("session")
	ctx := c.Request.Context()

	if err := s.genotypes.Delete(ctx, sessionID); err != nil {
		s.fail(c, http.StatusInternalServerError, domain.ErrInternalServer, "could not clear genotype", err)
		return
	}
	if err := s.matches.Clear(ctx); err != nil {
		s.fail(c, http.StatusInternalServerError, domain.ErrDatabaseError, "could not clear match results", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// handleListMatches pages through stored match results
func (s *Server) handleListMatches(c *gin.Context) {
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	ctx := c.Request.Context()

	total, err := s.matches.Count(ctx)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, domain.ErrDatabaseError, "could not count match results", err)
		return
	}
	matches, err := s.matches.List(ctx, limit, offset)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, domain.ErrDatabaseError, "could not list match results", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   total,
		"matches": matches,
	})
}

// parseFilters builds StudyFilters from query parameters
func parseFilters(c *gin.Context) domain.StudyFilters {
	filters := domain.StudyFilters{
		Search:            c.Query("q"),
		Trait:             c.Query("trait"),
		ExcludeLowQuality: boolQuery(c, "exclude_low_quality"),
		RequireRiskAllele: boolQuery(c, "require_risk_allele"),
		Confidence:        domain.ConfidenceBand(c.Query("confidence")),
	}
	if v, err := strconv.ParseInt(c.Query("min_sample_size"), 10, 64); err == nil {
		filters.MinSampleSize = &v
	}
	if v, err := strconv.ParseFloat(c.Query("max_p_value"), 64); err == nil {
		filters.MaxPValue = &v
	}
	if v, err := strconv.ParseFloat(c.Query("min_log_p"), 64); err == nil {
		filters.MinLogPValue = &v
	}
	return filters
}

func boolQuery(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// fail logs and renders a structured error response
func (s *Server) fail(c *gin.Context, status int, code, message string, err error) {
	requestID := c.GetString("request_id")
	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"code":       code,
		"error":      err,
	}).Error(message)
	c.JSON(status, domain.NewEngineError(code, message, err.Error(), requestID))
}
