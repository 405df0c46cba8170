package geo_test

import (
	"math"
	"testing"

	"github.com/okian/pitchtrace/internal/domain/geo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHaversine(t *testing.T) {
	Convey("Given two points one degree of longitude apart on the equator", t, func() {
		a := geo.Point{Lat: 0, Lon: 0}
		b := geo.Point{Lat: 0, Lon: 1}

		Convey("Then the distance is about 111.19 km", func() {
			So(geo.Haversine(a, b), ShouldAlmostEqual, 111190, 500)
		})
	})

	Convey("Given pairs of points", t, func() {
		pairs := [][2]geo.Point{
			{{Lat: 46.0, Lon: 7.0}, {Lat: 46.001, Lon: 7.001}},
			{{Lat: -33.9, Lon: 18.4}, {Lat: 51.5, Lon: -0.12}},
			{{Lat: 89.9999, Lon: 10}, {Lat: 89.9999, Lon: -170}},
			{{Lat: 0, Lon: 179.9999}, {Lat: 0, Lon: -179.9999}},
			{{Lat: 10, Lon: 20}, {Lat: -10, Lon: -160}},
		}

		Convey("Then distance is symmetric, finite and non-negative", func() {
			for _, p := range pairs {
				ab := geo.Haversine(p[0], p[1])
				ba := geo.Haversine(p[1], p[0])
				So(ab, ShouldEqual, ba)
				So(ab, ShouldBeGreaterThanOrEqualTo, 0)
				So(math.IsNaN(ab), ShouldBeFalse)
				So(math.IsInf(ab, 0), ShouldBeFalse)
			}
		})

		Convey("Then a point is at zero distance from itself", func() {
			for _, p := range pairs {
				So(geo.Haversine(p[0], p[0]), ShouldEqual, 0)
			}
		})

		Convey("Then points across the antimeridian are close", func() {
			So(geo.Haversine(pairs[3][0], pairs[3][1]), ShouldBeLessThan, 30)
		})

		Convey("Then antipodal points are half the circumference apart", func() {
			So(geo.Haversine(pairs[4][0], pairs[4][1]), ShouldAlmostEqual, math.Pi*geo.EarthRadius, 1)
		})
	})

	Convey("Given a small displacement in the Alps", t, func() {
		Convey("Then Distance agrees with Haversine and is about 140 m", func() {
			d := geo.Distance(46.0, 7.0, 46.001, 7.001)
			So(d, ShouldEqual, geo.Haversine(geo.Point{Lat: 46.0, Lon: 7.0}, geo.Point{Lat: 46.001, Lon: 7.001}))
			So(d, ShouldAlmostEqual, 140, 10)
		})
	})
}
