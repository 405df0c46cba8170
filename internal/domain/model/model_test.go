package model_test

import (
	"testing"
	"time"

	model "github.com/okian/pitchtrace/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRawSample(t *testing.T) {
	convey.Convey("Given a RawSample", t, func() {
		convey.Convey("When heart rate is positive", func() {
			s := model.RawSample{PlayerID: 7, HeartRate: 142}

			convey.Convey("Then it reports a reading", func() {
				convey.So(s.HasHeartRate(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When heart rate is zero or negative", func() {
			convey.Convey("Then it reports no reading", func() {
				convey.So(model.RawSample{}.HasHeartRate(), convey.ShouldBeFalse)
				convey.So(model.RawSample{HeartRate: -1}.HasHeartRate(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the timestamp is missing", func() {
			s := model.RawSample{}

			convey.Convey("Then it is the zero time", func() {
				convey.So(s.Timestamp.IsZero(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestSessionSummaryDay(t *testing.T) {
	convey.Convey("Given a summary created late in the evening in another zone", t, func() {
		loc := time.FixedZone("UTC-5", -5*60*60)
		s := model.SessionSummary{CreatedAt: time.Date(2025, 3, 9, 22, 30, 0, 0, loc)}

		convey.Convey("Then its day is the UTC day", func() {
			convey.So(s.Day(), convey.ShouldEqual, "2025-03-10")
		})
	})

	convey.Convey("Given a zero summary", t, func() {
		s := model.SessionSummary{}

		convey.Convey("Then all metrics are zero", func() {
			convey.So(s.PlayerID, convey.ShouldEqual, 0)
			convey.So(s.TotalDistance, convey.ShouldEqual, 0)
			convey.So(s.SprintCount, convey.ShouldEqual, 0)
			convey.So(s.HRMax, convey.ShouldEqual, 0)
		})
	})
}
