package status

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports a Registry to Prometheus
// Metric names are discovered at scrape time, so Describe is derived from Collect
type Collector struct {
	reg       *Registry
	namespace string
}

func NewCollector(reg *Registry, namespace string) *Collector {
	return &Collector{reg: reg, namespace: namespace}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.reg == nil {
		return
	}
	c.reg.Counters.Range(func(name string, v *atomic.Int64) {
		desc := prometheus.NewDesc(prometheus.BuildFQName(c.namespace, "", name+"_total"), "Navigation counter "+name+".", nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v.Load()))
	})
	c.reg.Gauges.Range(func(name string, v *AtomicFloat) {
		desc := prometheus.NewDesc(prometheus.BuildFQName(c.namespace, "", name), "Navigation gauge "+name+".", nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v.Get())
	})
}
