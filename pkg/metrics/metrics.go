// Package metrics 定义归档管线与 HTTP 层的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 入库结果
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Metrics 聚合所有计数器。nil 的 *Metrics 上调用任何方法都是安全的空操作。
type Metrics struct {
	DocumentsIngested *prometheus.CounterVec
	PipelineDegraded  *prometheus.CounterVec
	IndexOperations   *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
}

// New 创建指标并注册到 reg。
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		DocumentsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archive_documents_ingested_total",
			Help: "Uploads processed by the ingestion pipeline, by outcome.",
		}, []string{"outcome"}),
		PipelineDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archive_pipeline_degraded_total",
			Help: "Pipeline stages that degraded without failing the operation.",
		}, []string{"stage"}),
		IndexOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archive_index_operations_total",
			Help: "Search index operations, by operation and outcome.",
		}, []string{"op", "outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archive_http_requests_total",
			Help: "HTTP requests processed, by method, route and status.",
		}, []string{"method", "path", "status"}),
	}
	for _, c := range []prometheus.Collector{m.DocumentsIngested, m.PipelineDegraded, m.IndexOperations, m.HTTPRequests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Ingested(outcome string) {
	if m == nil {
		return
	}
	m.DocumentsIngested.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Degraded(stage string) {
	if m == nil {
		return
	}
	m.PipelineDegraded.WithLabelValues(stage).Inc()
}

func (m *Metrics) IndexOp(op string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailed
	}
	m.IndexOperations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) Request(method, path, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
}
