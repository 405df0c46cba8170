package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/pitchtrace/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPlayerRefs(t *testing.T) {
	Convey("Given player ids", t, func() {
		Convey("When wrapping them", func() {
			refs := types.PlayerRefs([]int64{3, 1})

			Convey("Then order is kept", func() {
				So(refs, ShouldResemble, []types.PlayerRef{{PlayerID: 3}, {PlayerID: 1}})
			})
		})

		Convey("When there are none", func() {
			b, err := json.Marshal(types.PlayerRefs(nil))

			Convey("Then it encodes as an empty array", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, "[]")
			})
		})
	})
}

func TestAck(t *testing.T) {
	Convey("Given an ack without a batch id", t, func() {
		b, err := json.Marshal(types.Ack{Status: "accepted"})

		Convey("Then the id is omitted", func() {
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"status":"accepted","duplicate":false}`)
		})
	})
}
