package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/pitchtrace/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const sampleCSV = ` player_id , lat, lon,gyro_w,gyro_x,gyro_y,gyro_z,distance,speed,timestamp,heartrate
7,45.0,7.0,1,0.1,0.2,0.3,0,0,1700000000,150
7,45.0,7.00001,1,0.1,0.2,0.3,1.1,1.1,1700000001,abc
`

func TestDecodeJSON(t *testing.T) {
	Convey("Given a JSON reading array", t, func() {
		body := `[
			{"player_id": 3, "lat": 45.1, "lon": "7.5", "gyro_x": "0.5", "speed": 2, "timestamp": 1700000000.5, "heartrate": 120},
			{"player_id": "3", "lat": "bad", "lon": null, "timestamp": "1700000001"},
			{"player_id": 4}
		]`

		Convey("When it is decoded", func() {
			got, err := DecodeJSON(strings.NewReader(body))

			Convey("Then numbers and numeric strings are accepted", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 3)
				So(got[0].PlayerID, ShouldEqual, 3)
				So(got[0].Latitude, ShouldEqual, 45.1)
				So(got[0].Longitude, ShouldEqual, 7.5)
				So(got[0].X, ShouldEqual, 0.5)
				So(got[0].HeartRate, ShouldEqual, 120)
				So(got[0].Timestamp.Equal(time.Unix(1700000000, 500_000_000)), ShouldBeTrue)
			})

			Convey("Then invalid values become zero", func() {
				So(got[1].PlayerID, ShouldEqual, 3)
				So(got[1].Latitude, ShouldEqual, 0)
				So(got[1].Longitude, ShouldEqual, 0)
				So(got[1].Timestamp.Equal(time.Unix(1700000001, 0)), ShouldBeTrue)
			})

			Convey("Then a missing timestamp is the zero time", func() {
				So(got[2].Timestamp.IsZero(), ShouldBeTrue)
				So(got[2].HasHeartRate(), ShouldBeFalse)
			})
		})
	})

	Convey("Given malformed payloads", t, func() {
		_, err := DecodeJSON(strings.NewReader(`[]`))
		So(err, ShouldEqual, ErrEmptyPayload)

		_, err = DecodeJSON(strings.NewReader(``))
		So(err, ShouldEqual, ErrEmptyPayload)

		_, err = DecodeJSON(strings.NewReader(`{"player_id": 1}`))
		So(errors.Is(err, ErrInvalidPayload), ShouldBeTrue)
	})

	Convey("Given a sample converted to its wire form", t, func() {
		src, err := DecodeJSON(strings.NewReader(`[{"player_id": 9, "lat": 1.5, "timestamp": 1700000002, "heartrate": 99}]`))
		So(err, ShouldBeNil)

		back := ReadingOf(src[0]).Sample()
		So(back, ShouldResemble, src[0])
	})
}

func TestParseCSV(t *testing.T) {
	Convey("Given a tracker CSV with padded headers", t, func() {
		got, err := ParseCSV(strings.NewReader(sampleCSV))

		Convey("Then every row is decoded by column name", func() {
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got[0].PlayerID, ShouldEqual, 7)
			So(got[0].GyroW, ShouldEqual, 1)
			So(got[0].Z, ShouldEqual, 0.3)
			So(got[0].HeartRate, ShouldEqual, 150)
			So(got[1].Distance, ShouldEqual, 1.1)
			So(got[1].HeartRate, ShouldEqual, 0)
			So(got[1].Timestamp.Sub(got[0].Timestamp), ShouldEqual, time.Second)
		})
	})

	Convey("Given degenerate CSV bodies", t, func() {
		_, err := ParseCSV(strings.NewReader("  \n "))
		So(err, ShouldEqual, ErrEmptyCSV)

		_, err = ParseCSV(strings.NewReader("player_id,lat,lon\n"))
		So(err, ShouldEqual, ErrHeaderMismatch)

		_, err = ParseCSV(strings.NewReader("id,lat,lon\n1,2,3\n"))
		So(err, ShouldEqual, ErrHeaderMismatch)
	})
}

func TestClient(t *testing.T) {
	Convey("Given a tracker serving a CSV file", t, func() {
		var gotPath, gotFile string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath, gotFile = r.URL.Path, r.URL.Query().Get("file")
			switch gotFile {
			case "session.csv":
				_, _ = w.Write([]byte(sampleCSV))
			case "empty.csv":
				_, _ = w.Write([]byte("\n"))
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		host := strings.TrimPrefix(srv.URL, "http://")
		c := NewClient(WithTimeout(time.Second))
		ctx := context.Background()

		Convey("When the file exists", func() {
			got, err := c.Fetch(ctx, host, "session.csv")

			Convey("Then the rows are returned", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(gotPath, ShouldEqual, "/download")
				So(gotFile, ShouldEqual, "session.csv")
			})
		})

		Convey("When the file is missing", func() {
			_, err := c.Fetch(ctx, host, "missing.csv")
			So(errors.Is(err, ErrTrackerUnreachable), ShouldBeTrue)
		})

		Convey("When the file is empty", func() {
			_, err := c.Fetch(ctx, host, "empty.csv")
			So(err, ShouldEqual, ErrEmptyCSV)
		})
	})

	Convey("Given an unreachable tracker", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		host := strings.TrimPrefix(srv.URL, "http://")
		srv.Close()

		_, err := NewClient(WithHTTPClient(&http.Client{Timeout: time.Second})).Fetch(context.Background(), host, "x.csv")
		So(errors.Is(err, ErrTrackerUnreachable), ShouldBeTrue)
	})

	Convey("DownloadURL escapes the file name", t, func() {
		So(DownloadURL("192.168.4.1", "a b.csv"), ShouldEqual, "http://192.168.4.1/download?file=a+b.csv")
	})
}
