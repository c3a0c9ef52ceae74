// Package metrics exposes Prometheus counters for the session lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsIssued counts new session families created at login.
	SessionsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_sessions_issued_total",
		Help: "Number of session families issued.",
	})

	// Rotations counts successful refresh token rotations.
	Rotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_rotations_total",
		Help: "Number of successful refresh rotations.",
	})

	// ReuseDetections counts refresh attempts with an already consumed token.
	ReuseDetections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_reuse_detections_total",
		Help: "Number of refresh token reuse detections.",
	})

	// Revocations counts explicit session revocations, including family
	// revocations triggered by reuse detection.
	Revocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_revocations_total",
		Help: "Number of session revocations.",
	})

	// SweptRows counts session rows removed by the cleanup sweeper.
	SweptRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_swept_rows_total",
		Help: "Number of expired session rows purged.",
	})
)
