package segment_test

import (
	"testing"

	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/internal/domain/segment"
	. "github.com/smartystreets/goconvey/convey"
)

func speeds(dt float64, vs ...float64) []model.KinematicInterval {
	out := make([]model.KinematicInterval, len(vs))
	for i, v := range vs {
		out[i] = model.KinematicInterval{DT: dt, Speed: v}
	}
	return out
}

func accels(dt float64, as ...float64) []model.KinematicInterval {
	out := make([]model.KinematicInterval, len(as))
	for i, a := range as {
		out[i] = model.KinematicInterval{DT: dt, Accel: a}
	}
	return out
}

var th = segment.Thresholds{SprintSpeed: segment.DefaultSprintSpeed, EventAccel: segment.DefaultEventAccel}

func TestSegmentSprints(t *testing.T) {
	Convey("Given the default rule", t, func() {
		rule := segment.DefaultRule()

		Convey("When a sprint lasts exactly the minimum duration", func() {
			c := segment.Segment(speeds(0.5, 0, 8, 8, 0), th, rule)

			Convey("Then it counts as one sprint", func() {
				So(c.Sprints, ShouldEqual, 1)
			})
		})

		Convey("When a sprint lasts strictly less than the minimum duration", func() {
			c := segment.Segment(speeds(0.25, 0, 8, 8, 8, 0), th, rule)

			Convey("Then it is not counted", func() {
				So(c.Sprints, ShouldEqual, 0)
			})
		})

		Convey("When speed sits exactly on the threshold", func() {
			c := segment.Segment(speeds(1, 7, 7, 7, 0), th, rule)

			Convey("Then it is not an excursion", func() {
				So(c.Sprints, ShouldEqual, 0)
			})
		})

		Convey("When a qualifying sprint is still running at the end", func() {
			c := segment.Segment(speeds(1, 0, 8, 8, 8), th, rule)

			Convey("Then it is not committed", func() {
				So(c.Sprints, ShouldEqual, 0)
			})
		})

		Convey("When two sprints are separated by a slow interval", func() {
			c := segment.Segment(speeds(1, 8, 9, 2, 8, 0.5, 10, 10, 1), th, rule)

			Convey("Then each qualifying run counts once", func() {
				So(c.Sprints, ShouldEqual, 3)
			})
		})
	})

	Convey("Given flush on end", t, func() {
		rule := segment.DefaultRule()
		rule.FlushOpenRuns = true

		Convey("Then a qualifying open run is committed", func() {
			So(segment.Segment(speeds(1, 0, 8, 8), th, rule).Sprints, ShouldEqual, 1)
		})

		Convey("Then a short open run is still dropped", func() {
			So(segment.Segment(speeds(0.5, 0, 8), th, rule).Sprints, ShouldEqual, 0)
		})
	})

	Convey("Given entry edge counting", t, func() {
		rule := segment.DefaultRule()
		rule.Counting = segment.CountEntryEdge

		Convey("Then every entry counts regardless of duration or end of stream", func() {
			c := segment.Segment(speeds(0.1, 8, 0, 8, 0, 9), th, rule)
			So(c.Sprints, ShouldEqual, 3)
		})
	})
}

func TestSegmentAccelerations(t *testing.T) {
	Convey("Given acceleration intervals", t, func() {
		rule := segment.DefaultRule()

		Convey("When accelerating and decelerating for a second each", func() {
			c := segment.Segment(accels(0.5, 4, 4, -4, -4, 0), th, rule)

			Convey("Then one of each is counted", func() {
				So(c.Accelerations, ShouldEqual, 1)
				So(c.Decelerations, ShouldEqual, 1)
				So(c.Sprints, ShouldEqual, 0)
			})
		})

		Convey("When the acceleration equals the threshold", func() {
			c := segment.Segment(accels(1, 3, -3, 0), th, rule)

			Convey("Then neither signal is active", func() {
				So(c.Accelerations, ShouldEqual, 0)
				So(c.Decelerations, ShouldEqual, 0)
			})
		})
	})
}

func TestDetector(t *testing.T) {
	Convey("Given a detector", t, func() {
		d := segment.NewDetector(func(iv model.KinematicInterval) bool { return iv.Speed > 1 }, segment.DefaultRule())

		Convey("Then it tracks the active state", func() {
			So(d.Active(), ShouldBeFalse)
			d.Step(model.KinematicInterval{DT: 1, Speed: 2})
			So(d.Active(), ShouldBeTrue)
			d.Step(model.KinematicInterval{DT: 1, Speed: 0})
			So(d.Active(), ShouldBeFalse)
			So(d.Finish(), ShouldEqual, 1)
		})
	})
}
