// Package metrics exposes the Prometheus instrumentation of JobMesh.
//
// A Collector carries the full metric set: per-run and per-step workflow
// counters and histograms plus HTTP request metrics for the API server. Its
// observer methods are plain funcs matching the engine's hook signatures, so
// wiring is a two-line affair:
//
//	collector := metrics.NewCollector()
//	eng, err := engine.New(regs, func(o *engine.Options) {
//	    o.OnStep = collector.ObserveStep
//	    o.OnFinish = collector.ObserveRun
//	})
//	collector.TrackActiveRuns(eng.ActiveRuns)
package metrics
