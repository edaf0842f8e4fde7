package metrics

import (
	"sync"
	"time"

	"priceupload/logger"
)

// Metric names emitted by an upload run.
const (
	ProductsUploaded    = "products_uploaded"
	BatchesSubmitted    = "batches_submitted"
	BackpressureRetries = "backpressure_retries"
	UploadDurationMs    = "upload_duration_ms"
	ChecksumCorrect     = "checksum_correct"
)

// Metric is a structured metric event.
type Metric struct {
	Timestamp time.Time
	Component string
	Name      string
	Value     interface{}
	Type      string
	Fields    logger.Fields
}

// Float64 returns the metric value as a number. Booleans map to 0 and 1.
func (m Metric) Float64() (float64, bool) {
	return toFloat64(m.Value)
}

// MetricHandler consumes emitted metrics.
type MetricHandler func(Metric)

// MetricHandlerID identifies a registered handler.
type MetricHandlerID uint64

type handlerRegistry struct {
	mu       sync.RWMutex
	last     MetricHandlerID
	handlers map[MetricHandlerID]MetricHandler
}

var registry = &handlerRegistry{handlers: make(map[MetricHandlerID]MetricHandler)}

func (r *handlerRegistry) add(h MetricHandler) MetricHandlerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last++
	r.handlers[r.last] = h
	return r.last
}

func (r *handlerRegistry) remove(id MetricHandlerID) {
	r.mu.Lock()
	delete(r.handlers, id)
	r.mu.Unlock()
}

func (r *handlerRegistry) snapshot() []MetricHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MetricHandler, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h)
	}
	return out
}

// RegisterMetricHandler registers a handler that receives every emitted metric.
// A nil handler is ignored and yields the zero identifier.
func RegisterMetricHandler(handler MetricHandler) MetricHandlerID {
	if handler == nil {
		return 0
	}
	return registry.add(handler)
}

func UnregisterMetricHandler(id MetricHandlerID) {
	if id != 0 {
		registry.remove(id)
	}
}

// Collector keeps the latest numeric value of each metric emitted while it is
// registered. Non-numeric values are skipped.
type Collector struct {
	mu     sync.Mutex
	values map[string]float64
	id     MetricHandlerID
}

// NewCollector registers a Collector. Close unregisters it.
func NewCollector() *Collector {
	c := &Collector{values: make(map[string]float64)}
	c.id = RegisterMetricHandler(c.observe)
	return c
}

func (c *Collector) observe(m Metric) {
	v, ok := m.Float64()
	if !ok {
		return
	}
	c.mu.Lock()
	c.values[m.Name] = v
	c.mu.Unlock()
}

// Values returns a copy of the collected metrics keyed by name.
func (c *Collector) Values() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func (c *Collector) Close() {
	UnregisterMetricHandler(c.id)
}

// recordMetric logs the metric and hands it to every registered handler.
func recordMetric(log *logger.Log, component, name string, value interface{}, metricType string, fields logger.Fields) (Metric, bool) {
	if name == "" {
		return Metric{}, false
	}
	if metricType == "" {
		metricType = "counter"
	}
	if log == nil {
		log = logger.GetLogger()
	}

	metric := Metric{
		Timestamp: time.Now(),
		Component: component,
		Name:      name,
		Value:     value,
		Type:      metricType,
		Fields:    make(logger.Fields, len(fields)),
	}
	for k, v := range fields {
		metric.Fields[k] = v
	}

	log.WithComponent(component).WithFields(metric.Fields).WithFields(logger.Fields{
		"metric":      name,
		"metric_type": metricType,
		"value":       value,
	}).Info("metric")

	for _, handle := range registry.snapshot() {
		handle(metric)
	}
	return metric, true
}
