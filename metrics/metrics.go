// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

// metrics is a singleton service that provides global access to a set of meters.
// It defaults to a no-op implementation; call InitializePrometheusMetrics to enable collection.
var metrics Metrics = defaultNoopMetrics()

// Metrics defines the interface for metrics service implementations.
type Metrics interface {
	GetOrCreateCountMeter(name string) CountMeter
	GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter
	GetOrCreateGaugeMeter(name string) GaugeMeter
	GetOrCreateHandler() http.Handler
}

// CountMeter is a cumulative metric that represents a single monotonically increasing counter.
type CountMeter interface {
	Add(int64)
}

// CountVecMeter same as CountMeter but with labels.
type CountVecMeter interface {
	AddWithLabel(int64, map[string]string)
}

// GaugeMeter is a metric that represents a single numeric value, which can go up and down.
type GaugeMeter interface {
	Set(int64)
	Add(int64)
}

// HTTPHandler returns the http handler for retrieving metrics.
func HTTPHandler() http.Handler {
	return metrics.GetOrCreateHandler()
}

// Counter returns a count meter by name.
func Counter(name string) CountMeter { return metrics.GetOrCreateCountMeter(name) }

// CounterVec returns a labeled count meter by name.
func CounterVec(name string, labels []string) CountVecMeter {
	return metrics.GetOrCreateCountVecMeter(name, labels)
}

// Gauge returns a gauge meter by name.
func Gauge(name string) GaugeMeter { return metrics.GetOrCreateGaugeMeter(name) }
