// Package api serves one analysis result for interactive inspection: the
// HTML report at /, charts as PNG, the derived tables as JSON and the
// Prometheus registry at /metrics.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/halvard/harpqc/internal/analysis"
	"github.com/halvard/harpqc/internal/report"
)

type Server struct {
	res  *analysis.Result
	page report.Options
	addr string
	rep  *report.Writer

	// Charts are rendered once; the result never changes while serving.
	charts report.Charts
}

func NewServer(res *analysis.Result, addr string, page report.Options) *Server {
	s := &Server{
		res:  res,
		page: page,
		addr: addr,
		rep:  report.NewWriter(),
	}

	charts, err := report.RenderCharts(res, page)
	if err != nil {
		log.Printf("api: render charts: %v", err)
	}
	s.charts = charts

	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/coverage.png", s.chartHandler(s.charts.Coverage))
	mux.HandleFunc("/lifespan.png", s.chartHandler(s.charts.Lifespan))
	mux.HandleFunc("/longitude.png", s.chartHandler(s.charts.Longitude))
	mux.HandleFunc("/timeline.png", s.chartHandler(s.charts.Timeline))
	mux.HandleFunc("/runlengths.png", s.chartHandler(s.charts.RunLengths))
	mux.HandleFunc("/api/summary", s.handleAPISummary)
	mux.HandleFunc("/api/regions", s.handleAPIRegions)
	mux.HandleFunc("/api/issues", s.handleAPIIssues)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
