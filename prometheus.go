package main

import (
	"log"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwsl/lora_pyramid/iq_extensions/lora"
)

// PrometheusMetrics holds all Prometheus metric collectors for the
// demodulator and the host process
type PrometheusMetrics struct {
	// Demodulator counters
	stepsTotal        prometheus.Counter // Analysis windows processed
	peaksTotal        prometheus.Counter // Spectral peaks detected
	tracksOpenedTotal prometheus.Counter // Peak tracks opened
	tracksClosedTotal prometheus.Counter // Peak tracks closed and classified
	preamblesTotal    prometheus.Counter // Preamble plateaus detected
	orphanPeaksTotal  prometheus.Counter // Data peaks with no matching packet
	packetsPublished  prometheus.Counter // Packets finalised and published
	packetsDropped    prometheus.Counter // Packets dropped for being too short

	// Demodulator state gauges
	openTracks    prometheus.Gauge // Peak tracks currently open
	freeTrackIDs  prometheus.Gauge // Track pool ids available
	openPackets   prometheus.Gauge // Packets currently being assembled
	freePacketIDs prometheus.Gauge // Packet pool ids available

	// Process metrics
	uptimeSeconds prometheus.Gauge
	goroutines    prometheus.Gauge
	heapAllocMB   prometheus.Gauge

	// Last stats snapshot, for counter deltas
	last lora.Stats

	startTime time.Time
	server    *http.Server
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewPrometheusMetrics creates and registers all metric collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		stepsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lora_demod_steps_total",
			Help: "Total analysis windows processed",
		}),
		peaksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lora_demod_peaks_total",
			Help: "Total spectral peaks detected",
		}),
		tracksOpenedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lora_demod_tracks_opened_total",
			Help: "Total peak tracks opened",
		}),
		tracksClosedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lora_demod_tracks_closed_total",
			Help: "Total peak tracks closed and classified",
		}),
		preamblesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lora_demod_preambles_total",
			Help: "Total preamble plateaus detected",
		}),
		orphanPeaksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lora_demod_orphan_peaks_total",
			Help: "Total data peaks that matched no open packet",
		}),
		packetsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lora_demod_packets_published_total",
			Help: "Total packets finalised and published",
		}),
		packetsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lora_demod_packets_dropped_total",
			Help: "Total packets dropped with too few symbols",
		}),
		openTracks: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lora_demod_open_tracks",
			Help: "Peak tracks currently open",
		}),
		freeTrackIDs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lora_demod_free_track_ids",
			Help: "Track pool ids available",
		}),
		openPackets: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lora_demod_open_packets",
			Help: "Packets currently being assembled",
		}),
		freePacketIDs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lora_demod_free_packet_ids",
			Help: "Packet pool ids available",
		}),
		uptimeSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lora_process_uptime_seconds",
			Help: "Seconds since process start",
		}),
		goroutines: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lora_process_goroutines",
			Help: "Current number of goroutines",
		}),
		heapAllocMB: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lora_process_heap_alloc_mb",
			Help: "Heap memory allocated in MB",
		}),
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}
}

// Start serves the /metrics endpoint and begins the periodic update loop.
// stats is polled every interval for demodulator counters.
func (pm *PrometheusMetrics) Start(listen string, interval time.Duration, stats func() lora.Stats) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	pm.server = &http.Server{Addr: listen, Handler: mux}

	go func() {
		log.Printf("Prometheus: Metrics endpoint listening on %s", listen)
		if err := pm.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Prometheus: Metrics server error: %v", err)
		}
	}()

	pm.wg.Add(1)
	go func() {
		defer pm.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-pm.stopChan:
				return
			case <-ticker.C:
				pm.update(stats())
			}
		}
	}()
}

// update applies one stats snapshot. Counters advance by the delta from the
// previous snapshot; the snapshots are cumulative and never decrease.
func (pm *PrometheusMetrics) update(st lora.Stats) {
	pm.stepsTotal.Add(float64(st.Steps - pm.last.Steps))
	pm.peaksTotal.Add(float64(st.Peaks - pm.last.Peaks))
	pm.tracksOpenedTotal.Add(float64(st.TracksOpened - pm.last.TracksOpened))
	pm.tracksClosedTotal.Add(float64(st.TracksClosed - pm.last.TracksClosed))
	pm.preamblesTotal.Add(float64(st.PreamblesDetected - pm.last.PreamblesDetected))
	pm.orphanPeaksTotal.Add(float64(st.OrphanDataPeaks - pm.last.OrphanDataPeaks))
	pm.packetsPublished.Add(float64(st.PacketsPublished - pm.last.PacketsPublished))
	pm.packetsDropped.Add(float64(st.PacketsDropped - pm.last.PacketsDropped))
	pm.last = st

	pm.openTracks.Set(float64(st.OpenTracks))
	pm.freeTrackIDs.Set(float64(st.FreeTrackIDs))
	pm.openPackets.Set(float64(st.OpenPackets))
	pm.freePacketIDs.Set(float64(st.FreePacketIDs))

	pm.uptimeSeconds.Set(time.Since(pm.startTime).Seconds())
	pm.goroutines.Set(float64(runtime.NumGoroutine()))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	pm.heapAllocMB.Set(float64(mem.HeapAlloc) / 1024 / 1024)
}

// Stop shuts down the update loop and the metrics server
func (pm *PrometheusMetrics) Stop() {
	close(pm.stopChan)
	pm.wg.Wait()
	if pm.server != nil {
		pm.server.Close()
	}
}
