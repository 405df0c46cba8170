package summary_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/pitchtrace/internal/domain/kinematics"
	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/internal/domain/segment"
	"github.com/okian/pitchtrace/internal/domain/summary"
	. "github.com/smartystreets/goconvey/convey"
)

const metersEast = 1.0 / 111194.92664455873

var t0 = time.Date(2025, 6, 14, 15, 0, 0, 0, time.UTC)

func sample(player int64, sec, eastMeters, hr float64) model.RawSample {
	return model.RawSample{
		PlayerID:  player,
		Longitude: eastMeters * metersEast,
		HeartRate: hr,
		Timestamp: t0.Add(time.Duration(sec * float64(time.Second))),
	}
}

// randomSession walks a player back and forth with bursts of pace.
func randomSession(rng *rand.Rand, n int) []model.RawSample {
	out := make([]model.RawSample, n)
	pos := 0.0
	sec := 0.0
	for i := range out {
		out[i] = sample(9, sec, pos, float64(120+rng.Intn(80)))
		out[i].X = rng.Float64() * 3
		out[i].Y = rng.Float64() * 3
		out[i].Z = rng.Float64() * 3
		sec += 0.2 + rng.Float64()*0.8
		pos += rng.Float64() * 9
	}
	return out
}

func TestComputeDegenerate(t *testing.T) {
	Convey("Given no samples", t, func() {
		out := summary.Compute(nil, summary.DefaultProfile())

		Convey("Then the summary is zeroed with the sentinel player id", func() {
			So(out, ShouldResemble, model.SessionSummary{})
		})
	})

	Convey("Given a single sample", t, func() {
		out := summary.Compute([]model.RawSample{sample(42, 0, 0, 170)}, summary.DefaultProfile())

		Convey("Then only the player id is set", func() {
			So(out, ShouldResemble, model.SessionSummary{PlayerID: 42})
		})
	})
}

func TestComputeScenario(t *testing.T) {
	Convey("Given 10 m covered in the first second and none in the next", t, func() {
		samples := []model.RawSample{
			sample(5, 0, 0, 0),
			sample(5, 1, 10, 0),
			sample(5, 2, 10, 0),
		}
		out := summary.Compute(samples, summary.DefaultProfile())

		Convey("Then the whole distance is high-speed and sprint distance", func() {
			So(out.TotalDistance, ShouldAlmostEqual, 10.0, 0.011)
			So(out.HSRDistance, ShouldAlmostEqual, 10.0, 0.011)
			So(out.SprintDistance, ShouldAlmostEqual, 10.0, 0.011)
			So(out.TopSpeed, ShouldAlmostEqual, 10.0, 0.011)
		})

		Convey("Then a one second sprint counts because the boundary is inclusive", func() {
			So(out.SprintCount, ShouldEqual, 1)
			So(out.Accelerations, ShouldEqual, 1)
		})

		Convey("Then the deceleration still open at the end is not counted", func() {
			So(out.Decelerations, ShouldEqual, 0)
			So(out.MaxDeceleration, ShouldAlmostEqual, -10.0, 0.011)
			So(out.MaxAcceleration, ShouldAlmostEqual, 10.0, 0.011)
		})

		Convey("Then the heart rate falls back to the estimate", func() {
			So(out.HRMax, ShouldEqual, 190.5)
			So(out.HRMaxEstimated, ShouldBeTrue)
			So(out.TimeInRedZone, ShouldEqual, 0)
			So(out.PercentInRedZone, ShouldEqual, 0)
			So(out.HRRecoveryTime, ShouldEqual, 0)
		})

		Convey("Then the diagnostics describe the walk", func() {
			So(out.PlayerID, ShouldEqual, 5)
			So(out.Samples, ShouldEqual, 3)
			So(out.Intervals, ShouldEqual, 2)
			So(out.SkippedIntervals, ShouldEqual, 0)
			So(out.Duration, ShouldEqual, 2)
		})
	})

	Convey("Given a strict boundary shorter than the sprint", t, func() {
		samples := []model.RawSample{
			sample(5, 0, 0, 0),
			sample(5, 0.5, 5, 0),
			sample(5, 1, 5, 0),
		}

		Convey("Then half a second of sprinting is not an event", func() {
			So(summary.Compute(samples, summary.DefaultProfile()).SprintCount, ShouldEqual, 0)
		})
	})
}

func TestComputeProperties(t *testing.T) {
	Convey("Given generated sessions", t, func() {
		rng := rand.New(rand.NewSource(7))
		sessions := make([][]model.RawSample, 25)
		for i := range sessions {
			sessions[i] = randomSession(rng, 20+rng.Intn(200))
		}

		Convey("Then zone distances are nested", func() {
			for _, s := range sessions {
				out := summary.Compute(s, summary.DefaultProfile())
				So(out.TotalDistance, ShouldBeGreaterThanOrEqualTo, out.HSRDistance)
				So(out.HSRDistance, ShouldBeGreaterThanOrEqualTo, out.SprintDistance)
				So(out.SprintDistance, ShouldBeGreaterThanOrEqualTo, 0)
			}
		})

		Convey("Then computing twice gives identical output and leaves the input alone", func() {
			for _, s := range sessions {
				before := append([]model.RawSample(nil), s...)
				a := summary.Compute(s, summary.DefaultProfile())
				b := summary.Compute(s, summary.DefaultProfile())
				So(a, ShouldResemble, b)
				So(s, ShouldResemble, before)
			}
		})

		Convey("Then every float is rounded to two decimals", func() {
			out := summary.Compute(sessions[0], summary.DefaultProfile())
			for _, v := range []float64{out.TotalDistance, out.PlayerLoad, out.PowerScore, out.PercentInRedZone} {
				So(v*100, ShouldAlmostEqual, math.Round(v*100), 1e-6)
			}
		})
	})
}

func TestComputeHeartRate(t *testing.T) {
	Convey("Given heart rate readings with dropouts", t, func() {
		samples := []model.RawSample{
			sample(1, 0, 0, 150),
			sample(1, 1, 2, 0),
			sample(1, 2, 4, 185),
			sample(1, 3, 6, 200),
		}
		out := summary.Compute(samples, summary.DefaultProfile())

		Convey("Then the observed maximum drives the red zone", func() {
			So(out.HRMax, ShouldEqual, 200)
			So(out.HRMaxEstimated, ShouldBeFalse)
			So(out.TimeInRedZone, ShouldEqual, 2)
			So(out.PercentInRedZone, ShouldEqual, 66.67)
			So(out.HRRecoveryTime, ShouldEqual, 20)
		})
	})
}

func TestComputeProfiles(t *testing.T) {
	Convey("Given a lower sprint threshold", t, func() {
		p := summary.DefaultProfile()
		p.SprintSpeed = 5.0
		samples := []model.RawSample{
			sample(2, 0, 0, 0),
			sample(2, 1, 6, 0),
			sample(2, 2, 12, 0),
			sample(2, 3, 12, 0),
		}

		Convey("Then six metre per second runs count as sprints", func() {
			So(summary.Compute(samples, p).SprintCount, ShouldEqual, 1)
			So(summary.Compute(samples, summary.DefaultProfile()).SprintCount, ShouldEqual, 0)
		})
	})

	Convey("Given device distance as the source", t, func() {
		p := summary.DefaultProfile()
		p.DistanceSource = kinematics.DistanceFromDevice
		samples := []model.RawSample{sample(2, 0, 0, 0), sample(2, 1, 0, 0)}
		samples[0].Distance = 10
		samples[1].Distance = 13.5

		Convey("Then total distance follows the device counter", func() {
			So(summary.Compute(samples, p).TotalDistance, ShouldEqual, 3.5)
		})
	})
}

func TestProfileValidate(t *testing.T) {
	Convey("Given the default profile", t, func() {
		Convey("Then it validates", func() {
			So(summary.DefaultProfile().Validate(), ShouldBeNil)
		})
	})

	Convey("Given broken profiles", t, func() {
		cases := []func(*summary.Profile){
			func(p *summary.Profile) { p.SprintSpeed = 3 },
			func(p *summary.Profile) { p.EventAccel = -1 },
			func(p *summary.Profile) { p.PlayerLoadScale = 0 },
			func(p *summary.Profile) { p.Gravity = 0 },
			func(p *summary.Profile) { p.RedZoneFraction = 1.5 },
			func(p *summary.Profile) { p.RecoveryDivisor = 0 },
			func(p *summary.Profile) { p.DistanceSource = "odometer" },
			func(p *summary.Profile) { p.SpeedSource = "radar" },
			func(p *summary.Profile) { p.Counting = segment.Counting("peak") },
		}

		Convey("Then each is rejected", func() {
			for _, mutate := range cases {
				p := summary.DefaultProfile()
				mutate(&p)
				So(errors.Is(p.Validate(), summary.ErrInvalidProfile), ShouldBeTrue)
			}
		})
	})
}

func TestSummarizer(t *testing.T) {
	Convey("Given a summarizer with a fixed clock and ids", t, func() {
		now := time.Date(2025, 6, 14, 17, 0, 0, 0, time.UTC)
		s := summary.NewSummarizer(
			summary.WithClock(func() time.Time { return now }),
			summary.WithIDGenerator(func() string { return "sum-1" }),
		)

		Convey("When summarizing a session", func() {
			out, err := s.Summarize(context.Background(), []model.RawSample{sample(4, 0, 0, 0), sample(4, 1, 3, 0)})

			Convey("Then it is stamped", func() {
				So(err, ShouldBeNil)
				So(out.ID, ShouldEqual, "sum-1")
				So(out.CreatedAt, ShouldEqual, now)
				So(out.PlayerID, ShouldEqual, 4)
			})
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := s.Summarize(ctx, nil)

			Convey("Then it fails", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When summarizing mixed players out of order", func() {
			mixed := []model.RawSample{
				sample(8, 1, 3, 0),
				sample(3, 0, 0, 0),
				sample(8, 0, 0, 0),
				sample(3, 1, 4, 0),
			}
			out, err := s.SummarizeAll(context.Background(), mixed)

			Convey("Then there is one summary per player, ordered by id", func() {
				So(err, ShouldBeNil)
				So(out, ShouldHaveLength, 2)
				So(out[0].PlayerID, ShouldEqual, 3)
				So(out[1].PlayerID, ShouldEqual, 8)
				So(out[0].TotalDistance, ShouldAlmostEqual, 4, 0.01)
				So(out[1].TotalDistance, ShouldAlmostEqual, 3, 0.01)
			})

			Convey("Then the input order is untouched", func() {
				So(mixed[0].PlayerID, ShouldEqual, 8)
			})
		})
	})
}
