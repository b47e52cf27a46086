package ranking

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/divari/internal/domain/model"
)

func TestTallyPoints(t *testing.T) {
	Convey("Given placements of three organizations", t, func() {
		a := &model.Organization{ID: 1, Name: "Alpha", Abbreviation: "A"}
		b := &model.Organization{ID: 2, Name: "Beta", Abbreviation: "B"}
		c := &model.Organization{ID: 3, Name: "Gamma", Abbreviation: "C"}
		results := []model.PlacedResult{
			{Organization: b, Position: 2},
			{Organization: a, Position: 1},
			{Organization: a, Position: 3},
			{Organization: c, Position: 9},
			{Organization: nil, Position: 1},
		}

		Convey("Positions 1,2,3,9 score 8,7,6,0 and accumulate per organization", func() {
			points := TallyPoints(results, 8)
			So(points, ShouldHaveLength, 2)
			So(points[0].Organization.ID, ShouldEqual, 1)
			So(points[0].Value, ShouldEqual, 14)
			So(points[1].Organization.ID, ShouldEqual, 2)
			So(points[1].Value, ShouldEqual, 7)
		})

		Convey("Equal totals keep first-seen order", func() {
			points := TallyPoints([]model.PlacedResult{
				{Organization: c, Position: 4},
				{Organization: a, Position: 4},
			}, 8)
			So(points[0].Organization.ID, ShouldEqual, 3)
			So(points[1].Organization.ID, ShouldEqual, 1)
		})

		Convey("No placements give an empty tally", func() {
			So(TallyPoints(nil, 8), ShouldBeEmpty)
		})
	})
}
