// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/BoostyLabs/arc20-psbt/bitcoin"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
)

// metrics holds HTTP boundary collectors.
type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arc20psbt",
			Name:      "http_requests_total",
			Help:      "Number of handled HTTP requests.",
		}, []string{"route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arc20psbt",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP requests handling duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arc20psbt",
			Name:      "trade_errors_total",
			Help:      "Number of requests rejected with trade error code.",
		}, []string{"route", "code"}),
	}
	registerer.MustRegister(m.requests, m.duration, m.failures)

	return m
}

// requestID takes request id from the header or generates new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// observe logs the request and updates metrics after it is handled.
func observe(log logrus.FieldLogger, m *metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()

		m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())

		entry := log.WithFields(logrus.Fields{
			requestIDKey: c.GetString(requestIDKey),
			"route":      route,
			"status":     status,
			"latency":    time.Since(start),
		})

		err := c.Errors.Last()
		if err == nil {
			entry.Debug("request handled")
			return
		}

		if code, ok := bitcoin.CodeOf(err.Err); ok {
			m.failures.WithLabelValues(route, string(code)).Inc()
			entry.WithField("code", code).WithError(err.Err).Info("request rejected")
			return
		}

		if status >= 500 {
			entry.WithError(err.Err).Error("request failed")
			return
		}

		entry.WithError(err.Err).Info("bad request")
	}
}
