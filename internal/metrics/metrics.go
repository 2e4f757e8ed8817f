package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harpqc_records_loaded_total",
			Help: "Total records decoded from the input table",
		},
		[]string{"source"},
	)

	RecordsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harpqc_records_classified_total",
			Help: "Total records classified by completeness",
		},
		[]string{"class"},
	)

	LongitudesImputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harpqc_longitudes_imputed_total",
			Help: "Total longitude values filled by imputation",
		},
		[]string{"field", "method"},
	)

	EntityIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harpqc_entity_issues_total",
			Help: "Total entities skipped by an analysis stage",
		},
		[]string{"stage"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harpqc_analysis_duration_seconds",
			Help:    "Wall time of one full analysis pass",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	FetchBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harpqc_fetch_bytes_total",
			Help: "Total bytes retrieved from remote dataset sources",
		},
		[]string{"scheme"},
	)
)
