package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestPackageHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording domain metrics", func() {
			RecordRatingFetch("ok")
			RecordRatingFetch("transient")
			RecordRatingFetchLatency(12.5)
			RecordReconciliation()
			RecordReconcileNoop()
			RecordLabelAdded()
			RecordLabelRemoved()
			RecordLabelError()
			RecordFirstAssignment()
			RecordAggregationRun()
			RecordAggregationError()
			RecordAggregationDuration(420)
			UpdateSnapshotSize(20)
			UpdateRegisteredUsers(7)
			RecordCommandHandled("verificar", "ok")
			RecordEventDropped()
			UpdateInboundQueueLength(3)

			Convey("Then the registry should expose them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
