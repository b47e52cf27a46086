package divari

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/divari/internal/domain/model"
)

func results(scores ...int) []model.Result {
	out := make([]model.Result, len(scores))
	for i, s := range scores {
		out[i] = model.Result{ID: int64(i + 1), Score: s}
	}
	return out
}

func TestFormTeams(t *testing.T) {
	Convey("FormTeams", t, func() {
		Convey("Groups consecutive triples best first", func() {
			groups := FormTeams(results(10, 50, 40, 30, 20, 60, 5))
			So(groups, ShouldHaveLength, 2)
			So(groups[0].Number, ShouldEqual, 1)
			So(groups[0].Score, ShouldEqual, 150)
			So(groups[1].Number, ShouldEqual, 2)
			So(groups[1].Score, ShouldEqual, 60)
		})

		Convey("Fewer than three results form no team", func() {
			So(FormTeams(results(100, 90)), ShouldBeEmpty)
			So(FormTeams(nil), ShouldBeEmpty)
		})

		Convey("Ties keep input order", func() {
			groups := FormTeams(results(50, 50, 50, 50))
			So(groups, ShouldHaveLength, 1)
			So(groups[0].Results[0].ID, ShouldEqual, 1)
			So(groups[0].Results[2].ID, ShouldEqual, 3)
		})

		Convey("The input slice is not reordered", func() {
			in := results(1, 2, 3)
			FormTeams(in)
			So(in[0].Score, ShouldEqual, 1)
		})
	})
}

func TestCapScore(t *testing.T) {
	Convey("CapScore", t, func() {
		So(CapScore([]int{100, 300, 250}, 2), ShouldEqual, 550)
		So(CapScore([]int{100, 300, 250}, 5), ShouldEqual, 650)
		So(CapScore([]int{100, 300}, 0), ShouldEqual, 0)
		So(CapScore(nil, 3), ShouldEqual, 0)
	})
}

func TestSeedTeams(t *testing.T) {
	Convey("Given a previous season requiring two results", t, func() {
		prev := model.Season{ID: 1, ResultCount: 2}
		next := model.Season{ID: 2}
		teams := []model.Team{
			{ID: 11, OrganizationID: 7, BowType: model.BowRecurve, Number: 1, Division: 1, SeasonID: 1},
			{ID: 12, OrganizationID: 7, BowType: model.BowRecurve, Number: 2, Division: 3, SeasonID: 1},
			{ID: 13, OrganizationID: 8, BowType: model.BowCompound, Number: 1, Division: 2, SeasonID: 1},
		}
		counts := map[int64]int{11: 2, 12: 1, 13: 4}

		Convey("Only teams that reached the count carry over", func() {
			seeded := SeedTeams(prev, teams, counts, next)
			So(seeded, ShouldHaveLength, 2)
			So(seeded[0], ShouldResemble, model.Team{OrganizationID: 7, BowType: model.BowRecurve, Number: 1, Division: 1, SeasonID: 2})
			So(seeded[1].Division, ShouldEqual, 2)
			So(seeded[1].SeasonID, ShouldEqual, 2)
		})

		Convey("Teams of other seasons are ignored", func() {
			teams[0].SeasonID = 5
			So(SeedTeams(prev, teams, counts, next), ShouldHaveLength, 1)
		})
	})
}
