package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("divari"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered on that registry", func() {
				So(manager, ShouldNotBeNil)
				manager.teamResultsWritten.Add(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_divari_team_results_written_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording recalculations", func() {
			before := testutil.ToFloat64(globalManager.recalculations.WithLabelValues("season", "error"))
			RecordRecalculation("season", 12, errors.New("boom"))
			RecordRecalculation("season", 3, nil)

			Convey("Then the outcome label separates failures", func() {
				after := testutil.ToFloat64(globalManager.recalculations.WithLabelValues("season", "error"))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording derived rows", func() {
			before := testutil.ToFloat64(globalManager.seasonResultsWritten)
			AddSeasonResultsWritten(4)
			AddTeamResultsWritten(2)
			AddTeamsCreated(1)
			RecordCompetitionProcessed()

			Convey("Then the counters grow", func() {
				So(testutil.ToFloat64(globalManager.seasonResultsWritten)-before, ShouldEqual, 4)
			})
		})

		Convey("When recording reports", func() {
			RecordReport("sjal", 17, 2.5, nil)

			Convey("Then the entries gauge reflects the last size", func() {
				So(testutil.ToFloat64(globalManager.reportEntries.WithLabelValues("sjal")), ShouldEqual, 17)
			})
		})

		Convey("When recording queue, worker and http activity", func() {
			So(func() {
				UpdateQueueCapacity(10)
				UpdateQueueSize(2)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueRejected("full")
				RecordJobCoalesced()
				UpdateWorkerCount(2)
				RecordWorkerJob(5, nil)
				RecordWorkerJob(5, errors.New("boom"))
				RecordHTTPRequest("calculate", "POST", "200", 1)
				RecordErrorByComponent("http", "client_error")
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 2)
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
