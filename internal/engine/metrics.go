package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portraitlab",
		Subsystem: "engine",
		Name:      "generation_duration_seconds",
		Help:      "Duration of single provider generation calls",
	}, []string{"provider"})

	generationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portraitlab",
		Subsystem: "engine",
		Name:      "generation_results_total",
		Help:      "Generation results by terminal status",
	}, []string{"provider", "status"})

	evaluationsScored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portraitlab",
		Subsystem: "engine",
		Name:      "evaluations_total",
		Help:      "Evaluations produced per scoring strategy",
	}, []string{"strategy"})

	iterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portraitlab",
		Subsystem: "engine",
		Name:      "iterations_total",
		Help:      "Completed engine iterations across all runs",
	})

	runsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portraitlab",
		Subsystem: "engine",
		Name:      "runs_finished_total",
		Help:      "Runs reaching a terminal state",
	}, []string{"status"})
)
