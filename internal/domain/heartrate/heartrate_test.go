package heartrate_test

import (
	"testing"

	"github.com/okian/pitchtrace/internal/domain/heartrate"
	"github.com/okian/pitchtrace/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func hr(values ...float64) []model.RawSample {
	out := make([]model.RawSample, len(values))
	for i, v := range values {
		out[i] = model.RawSample{HeartRate: v}
	}
	return out
}

func TestAnalyze(t *testing.T) {
	Convey("Given heart rate readings with gaps", t, func() {
		st := heartrate.Analyze(hr(0, 150, 180, 200, 0, 170, 190), heartrate.DefaultParams())

		Convey("Then the maximum is observed", func() {
			So(st.Max, ShouldEqual, 200)
			So(st.Estimated, ShouldBeFalse)
			So(st.RedZoneThreshold, ShouldEqual, 180)
		})

		Convey("Then occupancy counts only valid readings", func() {
			So(st.Valid, ShouldEqual, 5)
			So(st.InRedZone, ShouldEqual, 3)
			So(st.PercentInRedZone, ShouldAlmostEqual, 60, 1e-9)
		})

		Convey("Then recovery is max over ten", func() {
			So(st.RecoveryTime, ShouldEqual, 20)
		})
	})

	Convey("Given no heart rate readings", t, func() {
		st := heartrate.Analyze(hr(0, 0, -3), heartrate.DefaultParams())

		Convey("Then the age estimate is used", func() {
			So(st.Estimated, ShouldBeTrue)
			So(st.Max, ShouldAlmostEqual, 190.5, 1e-9)
		})

		Convey("Then occupancy and recovery are zero", func() {
			So(st.Valid, ShouldEqual, 0)
			So(st.InRedZone, ShouldEqual, 0)
			So(st.PercentInRedZone, ShouldEqual, 0)
			So(st.RecoveryTime, ShouldEqual, 0)
		})
	})

	Convey("Given a custom age and zone fraction", t, func() {
		p := heartrate.Params{Age: 40, RedZoneFraction: 0.8, RecoveryDivisor: 10}
		st := heartrate.Analyze(nil, p)

		Convey("Then the estimate and threshold follow them", func() {
			So(st.Max, ShouldAlmostEqual, heartrate.EstimateMax(40), 1e-9)
			So(st.RedZoneThreshold, ShouldAlmostEqual, 180*0.8, 1e-9)
		})
	})
}
