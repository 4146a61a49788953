package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/TechnoServe/mfiscore/internal/rank"
	"github.com/TechnoServe/mfiscore/internal/redact"
	"github.com/TechnoServe/mfiscore/internal/schema"
	"github.com/TechnoServe/mfiscore/internal/score"
	"github.com/TechnoServe/mfiscore/internal/source"
	"github.com/TechnoServe/mfiscore/internal/variance"
)

func (s *Server) weights() score.Weights {
	if s.profile == nil {
		return score.DefaultWeights()
	}
	return s.profile.Weights
}

func (s *Server) awardThresholds() rank.AwardThresholds {
	if s.profile == nil {
		return rank.DefaultAwardThresholds()
	}
	return s.profile.Awards
}

func (s *Server) varianceThreshold() float64 {
	if s.profile == nil {
		return variance.DefaultThreshold
	}
	return s.profile.Variance.Threshold
}

func (s *Server) pageSize() int {
	if s.profile == nil || s.profile.PageSize <= 0 {
		return 50
	}
	return s.profile.PageSize
}

// records fetches and validates the cycle named by the request, or the
// server default. On failure the error response has already been written.
func (s *Server) records(w http.ResponseWriter, r *http.Request) (string, []score.Record, bool) {
	cycle := strings.TrimSpace(r.URL.Query().Get("cycle"))
	if cycle == "" {
		cycle = s.cycle
	}
	records, err := source.Fetch(r.Context(), s.src, cycle)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "fetch records", "cycle", cycle, "error", redact.Error(err))
		writeErr(w, http.StatusBadGateway, "could not load records")
		return "", nil, false
	}
	if errs := schema.Validate(records); len(errs) > 0 {
		details := make([]string, len(errs))
		for i, e := range errs {
			details[i] = e.Error()
		}
		s.logger.WarnContext(r.Context(), "invalid records", "cycle", cycle, "errors", len(errs))
		writeJSON(w, http.StatusUnprocessableEntity, validationResp{Error: "invalid records", Details: details})
		return "", nil, false
	}
	return cycle, records, true
}

type scoresResp struct {
	Cycle     string       `json:"cycle,omitempty"`
	Companies []score.View `json:"companies"`
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	cycle, records, ok := s.records(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, scoresResp{Cycle: cycle, Companies: s.weights().AggregateAll(records)})
}

type companyResp struct {
	View            score.View                 `json:"view"`
	CategoryAverage map[score.Category]float64 `json:"category_average"`
	OverallAverage  *float64                   `json:"overall_average"`
	Variance        variance.Record            `json:"variance"`
	Awards          []rank.AwardType           `json:"awards"`
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "companyID")
	_, records, ok := s.records(w, r)
	if !ok {
		return
	}
	for _, rec := range records {
		if rec.CompanyID != id {
			continue
		}
		row := rank.NewRow(rec, s.weights())
		awards := rank.EarnedAwards(row, "", rank.AwardsFor(s.awardThresholds()))
		if awards == nil {
			awards = []rank.AwardType{}
		}
		writeJSON(w, http.StatusOK, companyResp{
			View:            row.View,
			CategoryAverage: row.CategoryAverage,
			OverallAverage:  row.OverallAverage,
			Variance:        variance.Build([]score.Record{rec}, s.varianceThreshold())[0],
			Awards:          awards,
		})
		return
	}
	writeErr(w, http.StatusNotFound, "company not found")
}

type varianceResp struct {
	Threshold float64           `json:"threshold"`
	Outliers  int               `json:"outliers"`
	Rows      []variance.Record `json:"rows"`
}

func (s *Server) handleVariance(w http.ResponseWriter, r *http.Request) {
	threshold := s.varianceThreshold()
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = t
	}
	_, records, ok := s.records(w, r)
	if !ok {
		return
	}
	rows := variance.Build(records, threshold)
	outliers := variance.Outliers(rows)
	if parseBool(r.URL.Query().Get("outliers")) {
		rows = outliers
	}
	writeJSON(w, http.StatusOK, varianceResp{Threshold: threshold, Outliers: len(outliers), Rows: rows})
}

type rankedRow struct {
	Rank            int                        `json:"rank"`
	CompanyID       string                     `json:"company_id"`
	Name            string                     `json:"name"`
	Tier            score.Tier                 `json:"tier"`
	View            score.View                 `json:"view"`
	CategoryAverage map[score.Category]float64 `json:"category_average"`
	OverallAverage  *float64                   `json:"overall_average"`
	Awards          []rank.AwardType           `json:"awards"`
}

type rankingsResp struct {
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Rows     []rankedRow `json:"rows"`
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	th := s.awardThresholds()
	criteria := rank.Criteria{
		Search:              q.Get("search"),
		Tier:                q.Get("tier"),
		Component:           score.Category(q.Get("component")),
		MinAverageScore:     q.Get("min_average"),
		Award:               rank.AwardType(q.Get("award")),
		IgnoreZeroValidated: parseBool(q.Get("ignore_zero_validated")),
		Thresholds:          &th,
	}
	dir := rank.Descending
	if v := q.Get("dir"); v != "" {
		d, err := rank.ParseDirection(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		dir = d
	}
	top := parseIntDefault(q.Get("top"), 0)
	rankBy := rank.RankBy(q.Get("rank_by"))
	sortKey := q.Get("sort")
	if sortKey == "" {
		sortKey = rank.KeyOverallAverage
	}

	_, records, ok := s.records(w, r)
	if !ok {
		return
	}

	rows := rank.Filter(rank.BuildRows(records, s.weights()), criteria)
	var err error
	if top > 0 || rankBy != "" {
		rows, err = rank.TopRows(rows, criteria.Component, top, rankBy, dir)
	} else {
		rows, err = rank.SortRows(rows, sortKey, dir)
	}
	if err != nil {
		if errors.Is(err, rank.ErrUnknownKey) {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		writeErr(w, http.StatusInternalServerError, "ranking failed")
		return
	}

	page := parseIntDefault(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	size := parseIntDefault(q.Get("page_size"), s.pageSize())
	if size <= 0 {
		size = s.pageSize()
	}
	start, end := pageBounds(len(rows), page, size)

	registry := rank.AwardsFor(th)
	out := make([]rankedRow, 0, end-start)
	for i, row := range rows[start:end] {
		awards := rank.EarnedAwards(row, criteria.Component, registry)
		if awards == nil {
			awards = []rank.AwardType{}
		}
		out = append(out, rankedRow{
			Rank:            start + i + 1,
			CompanyID:       row.Record.CompanyID,
			Name:            row.Record.Name,
			Tier:            row.Record.Tier,
			View:            row.View,
			CategoryAverage: row.CategoryAverage,
			OverallAverage:  row.OverallAverage,
			Awards:          awards,
		})
	}
	writeJSON(w, http.StatusOK, rankingsResp{Total: len(rows), Page: page, PageSize: size, Rows: out})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if s.profile == nil {
		writeErr(w, http.StatusNotFound, "no profile loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.profile)
}

// pageBounds returns the slice bounds of page (1-based) for n rows. Pages
// past the end are empty. The arithmetic cannot overflow.
func pageBounds(n, page, size int) (int, int) {
	if page-1 > n/size {
		return n, n
	}
	start := (page - 1) * size
	if start > n {
		start = n
	}
	if size >= n-start {
		return start, n
	}
	return start, start + size
}
