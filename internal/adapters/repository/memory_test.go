package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func at(day string, hour int) time.Time {
	t, err := time.ParseInLocation(model.DayLayout, day, time.UTC)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour)
}

func summaryOf(id string, player int64, created time.Time) model.SessionSummary {
	return model.SessionSummary{ID: id, PlayerID: player, TotalDistance: 100, CreatedAt: created}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory store with summaries over two days", t, func() {
		s := NewMemoryStore(ctx)
		defer s.Close()

		So(s.Save(ctx, summaryOf("a", 7, at("2024-05-01", 10))), ShouldBeNil)
		So(s.Save(ctx, summaryOf("b", 3, at("2024-05-01", 11))), ShouldBeNil)
		So(s.Save(ctx, summaryOf("c", 7, at("2024-05-02", 9))), ShouldBeNil)
		So(s.Save(ctx, summaryOf("d", 7, at("2024-05-01", 8))), ShouldBeNil)

		Convey("Then All returns newest first", func() {
			all, err := s.All(ctx)
			So(err, ShouldBeNil)
			So(ids(all), ShouldResemble, []string{"c", "b", "a", "d"})

			n, err := s.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 4)
		})

		Convey("Then players and days are distinct and ordered", func() {
			players, _ := s.Players(ctx)
			So(players, ShouldResemble, []int64{3, 7})

			days, _ := s.MatchDates(ctx)
			So(days, ShouldResemble, []string{"2024-05-02", "2024-05-01"})

			pdays, _ := s.PlayerMatchDates(ctx, 3)
			So(pdays, ShouldResemble, []string{"2024-05-01"})

			none, _ := s.PlayerMatchDates(ctx, 99)
			So(none, ShouldBeEmpty)

			dp, err := s.DayPlayers(ctx, "2024-05-01")
			So(err, ShouldBeNil)
			So(dp, ShouldResemble, []int64{3, 7})
		})

		Convey("Then ByDay filters by players and orders by player then time", func() {
			got, err := s.ByDay(ctx, "2024-05-01", []int64{7, 3})
			So(err, ShouldBeNil)
			So(ids(got), ShouldResemble, []string{"b", "d", "a"})

			got, err = s.ByDay(ctx, "2024-05-01", nil)
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})

		Convey("Then PlayerHistory returns matching days newest first", func() {
			got, err := s.PlayerHistory(ctx, 7, []string{"2024-05-01", "2024-05-02"})
			So(err, ShouldBeNil)
			So(ids(got), ShouldResemble, []string{"c", "a", "d"})

			got, err = s.PlayerHistory(ctx, 7, []string{"2024-04-30"})
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})

		Convey("Then malformed days are rejected", func() {
			_, err := s.DayPlayers(ctx, "05/01/2024")
			So(err, ShouldEqual, ErrInvalidDay)
			_, err = s.ByDay(ctx, "", []int64{7})
			So(err, ShouldEqual, ErrInvalidDay)
			_, err = s.PlayerHistory(ctx, 7, []string{"nope"})
			So(err, ShouldEqual, ErrInvalidDay)
		})

		Convey("When the store is closed", func() {
			So(s.Close(), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			Convey("Then writes fail", func() {
				So(s.Save(ctx, summaryOf("e", 1, time.Now())), ShouldEqual, ErrClosed)
				_, err := s.SaveSamples(ctx, []model.RawSample{{}})
				So(err, ShouldEqual, ErrClosed)
			})
		})
	})

	Convey("Given a store with a small sample retention", t, func() {
		s := NewMemoryStore(ctx, WithSampleRetention(3), WithMetricsUpdateInterval(time.Millisecond))
		defer s.Close()

		Convey("Then the oldest samples are dropped", func() {
			n, err := s.SaveSamples(ctx, []model.RawSample{{PlayerID: 1}, {PlayerID: 2}})
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			n, err = s.SaveSamples(ctx, []model.RawSample{{PlayerID: 3}, {PlayerID: 4}})
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
			So(s.SampleCount(), ShouldEqual, 3)
			So(s.samples[0].PlayerID, ShouldEqual, 2)
		})

		Convey("Then a cancelled context is honoured", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.SaveSamples(cctx, []model.RawSample{{}})
			So(err, ShouldEqual, context.Canceled)
			So(s.Save(cctx, summaryOf("x", 1, time.Now())), ShouldEqual, context.Canceled)
		})
	})
}

func ids(in []model.SessionSummary) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.ID
	}
	return out
}
