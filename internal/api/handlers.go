package api

import (
	"encoding/json"
	"log"
	"net/http"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if err := s.rep.Render(w, s.res, s.page); err != nil {
		log.Printf("api: render report: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) chartHandler(data []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(data) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(data)
	}
}

type SummaryResponse struct {
	Source      string  `json:"source"`
	Records     int     `json:"records"`
	Regions     int     `json:"regions"`
	Complete    int     `json:"complete"`
	Incomplete  int     `json:"incomplete"`
	Missing     int     `json:"missing"`
	ImputedMin  int     `json:"imputed_lon_min"`
	ImputedMax  int     `json:"imputed_lon_max"`
	ExtremeLow  int     `json:"extreme_west"`
	ExtremeHigh int     `json:"extreme_east"`
	ExtremeLon  float64 `json:"lon_threshold"`
	Coverage    float64 `json:"coverage_fraction"`
	Issues      int     `json:"issues"`
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	resp := SummaryResponse{
		Source:      s.page.Source,
		Records:     s.res.Loaded,
		Regions:     len(s.res.Entities),
		Complete:    s.res.Totals.Complete,
		Incomplete:  s.res.Totals.Incomplete,
		Missing:     s.res.Totals.Missing,
		ImputedMin:  s.res.ImputedMin,
		ImputedMax:  s.res.ImputedMax,
		ExtremeLow:  s.res.ExtremeLow,
		ExtremeHigh: s.res.ExtremeHigh,
		ExtremeLon:  s.res.ExtremeLon,
		Coverage:    s.res.Coverage.Fraction(),
		Issues:      len(s.res.Issues),
	}
	writeJSON(w, resp)
}

func (s *Server) handleAPIRegions(w http.ResponseWriter, r *http.Request) {
	summaries := make([]any, 0, len(s.res.Entities))
	for _, ent := range s.res.Entities {
		summaries = append(summaries, ent.Summary)
	}
	writeJSON(w, summaries)
}

type issueResponse struct {
	HARPNum int    `json:"harpnum"`
	Stage   string `json:"stage"`
	Detail  string `json:"detail"`
}

func (s *Server) handleAPIIssues(w http.ResponseWriter, r *http.Request) {
	issues := make([]issueResponse, 0, len(s.res.Issues))
	for _, iss := range s.res.Issues {
		issues = append(issues, issueResponse{
			HARPNum: iss.HARPNum,
			Stage:   iss.Stage,
			Detail:  iss.Err.Error(),
		})
	}
	writeJSON(w, issues)
}

type healthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
	Regions int    `json:"regions"`
	Issues  int    `json:"issues"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:  "ok",
		Records: s.res.Loaded,
		Regions: len(s.res.Entities),
		Issues:  len(s.res.Issues),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}
