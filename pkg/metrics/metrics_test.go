package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("ranker"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should register its collectors there", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "ranker")
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "pairrank")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording comparisons", func() {
			before := testutil.ToFloat64(globalManager.comparisonsResolved)
			RecordComparison(24)
			RecordComparison(3.5)

			Convey("Then the counter advances per call", func() {
				So(testutil.ToFloat64(globalManager.comparisonsResolved), ShouldEqual, before+2)
			})
		})

		Convey("When recording selections by path", func() {
			before := testutil.ToFloat64(globalManager.pairSelections.WithLabelValues("scored"))
			fallback := testutil.ToFloat64(globalManager.pairSelections.WithLabelValues("fallback"))
			RecordPairSelection("scored")

			Convey("Then only that path advances", func() {
				So(testutil.ToFloat64(globalManager.pairSelections.WithLabelValues("scored")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.pairSelections.WithLabelValues("fallback")), ShouldEqual, fallback)
			})
		})

		Convey("When updating gauges", func() {
			UpdateItemsTotal(12)
			UpdateMeanUncertainty(42.5)
			UpdatePairCoverage(0.25)
			UpdatePersistQueueSize(3)

			Convey("Then the gauges hold the latest value", func() {
				So(testutil.ToFloat64(globalManager.itemsTotal), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.meanUncertainty), ShouldEqual, 42.5)
				So(testutil.ToFloat64(globalManager.pairCoverage), ShouldEqual, 0.25)
				So(testutil.ToFloat64(globalManager.persistQueueSize), ShouldEqual, 3)
			})
		})

		Convey("When recording the remaining series", func() {
			So(func() {
				RecordInvalidComparison()
				RecordDuplicateRequest()
				RecordCatalogRefresh()
				RecordCatalogError()
				RecordPersistQueueDropped()
				RecordPersistLatency(2)
				RecordPersistError()
				RecordSnapshotWritten()
				RecordHTTPRequest("pair", "GET", "200")
				RecordHTTPRequestDuration("pair", "GET", "200", 1)
				RecordErrorByComponent("storage", "write_failed")
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("comparisons", "POST", "client_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
