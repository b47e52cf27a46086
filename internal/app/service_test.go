package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/divari/internal/adapters/repository"
	service "github.com/okian/divari/internal/app"
	"github.com/okian/divari/internal/domain/model"
	"github.com/okian/divari/internal/domain/ranking"
	"github.com/okian/divari/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	ctx    context.Context
	svc    *service.Service
	store  *repository.MemoryStore
	org    model.Organization
	season model.Season
}

func newFixture(opts ...service.Option) *fixture {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	opts = append([]service.Option{
		service.WithStore(store),
		service.WithWorkerCount(2),
		service.WithClock(func() time.Time { return day("2025-12-31") }),
	}, opts...)
	svc := service.New(opts...)
	So(svc.Start(ctx), ShouldBeNil)

	org, err := svc.CreateOrganization(ctx, model.Organization{Name: "Test Archers", Abbreviation: "TA"})
	So(err, ShouldBeNil)
	season, seeded, err := svc.CreateSeason(ctx, model.Season{
		Name:        "2024-2025",
		DateStart:   day("2024-09-01"),
		DateEnd:     day("2025-04-30"),
		ResultCount: 1,
		StartLevels: map[model.BowType]int{model.BowRecurve: 3, model.BowCompound: 2},
	})
	So(err, ShouldBeNil)
	So(seeded, ShouldEqual, 0)

	return &fixture{ctx: ctx, svc: svc, store: store, org: org, season: season}
}

func (f *fixture) competition(date string) model.Competition {
	c, err := f.svc.CreateCompetition(f.ctx, model.Competition{OrganizationID: f.org.ID, Date: day(date)})
	So(err, ShouldBeNil)
	return c
}

func (f *fixture) result(compID int64, athlete string, score int) {
	_, err := f.svc.CreateResult(f.ctx, model.Result{
		CompetitionID: compID,
		BowType:       model.BowRecurve,
		TargetType:    model.Target40,
		Athlete:       athlete,
		Score:         score,
	})
	So(err, ShouldBeNil)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that was not started", t, func() {
		svc := service.New(service.WithStore(repository.NewMemoryStore()))
		ctx := context.Background()

		Convey("Operations report it", func() {
			_, err := svc.CalculateSeason(ctx, 1)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Start and Stop can be called twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			svc.Stop()
			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("An unknown storage driver fails to start", t, func() {
		svc := service.New(service.WithStorage("cassette", "", ""))
		So(svc.Start(context.Background()), ShouldNotBeNil)
	})
}

func TestService_Competitions(t *testing.T) {
	Convey("Given a started service with one season", t, func() {
		f := newFixture()
		defer f.svc.Stop()

		Convey("A competition inside the season is accepted", func() {
			c := f.competition("2024-10-05")
			So(c.ID, ShouldBeGreaterThan, 0)
		})

		Convey("A second competition in the same month is rejected", func() {
			f.competition("2024-10-05")
			_, err := f.svc.CreateCompetition(f.ctx, model.Competition{OrganizationID: f.org.ID, Date: day("2024-10-31")})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)

			c := f.competition("2024-11-01")
			So(c.ID, ShouldBeGreaterThan, 0)
		})

		Convey("A date outside every season is rejected", func() {
			_, err := f.svc.CreateCompetition(f.ctx, model.Competition{OrganizationID: f.org.ID, Date: day("2025-06-01")})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("A future date is rejected", func() {
			_, _, err := f.svc.CreateSeason(f.ctx, model.Season{
				Name: "future", DateStart: day("2026-01-01"), DateEnd: day("2026-12-31"),
			})
			So(err, ShouldBeNil)
			_, err = f.svc.CreateCompetition(f.ctx, model.Competition{OrganizationID: f.org.ID, Date: day("2026-02-01")})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("An unknown organization is rejected", func() {
			_, err := f.svc.CreateCompetition(f.ctx, model.Competition{OrganizationID: 999, Date: day("2024-10-05")})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestService_Results(t *testing.T) {
	Convey("Given a competition", t, func() {
		f := newFixture()
		defer f.svc.Stop()
		comp := f.competition("2024-10-05")

		Convey("Out of range or unknown values are rejected", func() {
			bad := []model.Result{
				{CompetitionID: comp.ID, BowType: model.BowRecurve, TargetType: model.Target40, Athlete: "A", Score: 601},
				{CompetitionID: comp.ID, BowType: model.BowRecurve, TargetType: model.Target40, Athlete: "A", Score: -1},
				{CompetitionID: comp.ID, BowType: "crossbow", TargetType: model.Target40, Athlete: "A", Score: 1},
				{CompetitionID: comp.ID, BowType: model.BowRecurve, TargetType: "80", Athlete: "A", Score: 1},
				{CompetitionID: comp.ID, BowType: model.BowRecurve, TargetType: model.Target40, Athlete: "  ", Score: 1},
				{CompetitionID: 999, BowType: model.BowRecurve, TargetType: model.Target40, Athlete: "A", Score: 1},
			}
			for _, r := range bad {
				_, err := f.svc.CreateResult(f.ctx, r)
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			}
		})

		Convey("Athlete names are unique regardless of case", func() {
			f.result(comp.ID, "Matti Meikäläinen", 290)
			_, err := f.svc.CreateResult(f.ctx, model.Result{
				CompetitionID: comp.ID,
				BowType:       model.BowRecurve,
				TargetType:    model.Target40,
				Athlete:       "MATTI MEIKÄLÄINEN",
				Score:         280,
			})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)

			Convey("but may shoot another target face", func() {
				_, err := f.svc.CreateResult(f.ctx, model.Result{
					CompetitionID: comp.ID,
					BowType:       model.BowRecurve,
					TargetType:    model.Target60,
					Athlete:       "matti meikäläinen",
					Score:         280,
				})
				So(err, ShouldBeNil)
			})
		})

		Convey("Results schedule a recalculation of the season", func() {
			f.result(comp.ID, "A", 290)
			f.result(comp.ID, "B", 285)
			f.result(comp.ID, "C", 280)
			f.result(comp.ID, "D", 100)

			ctx, cancel := context.WithTimeout(f.ctx, 5*time.Second)
			defer cancel()
			So(f.svc.WaitIdle(ctx), ShouldBeNil)

			standings, err := f.svc.SeasonStandings(f.ctx, f.season.ID, "")
			So(err, ShouldBeNil)
			So(standings, ShouldHaveLength, 1)
			So(standings[0].Score, ShouldEqual, 855)
			So(standings[0].Team.Division, ShouldEqual, 3)
			So(standings[0].Organization.Abbreviation, ShouldEqual, "TA")
		})
	})
}

func TestService_Calculation(t *testing.T) {
	Convey("Given results in a season", t, func() {
		f := newFixture()
		defer f.svc.Stop()
		comp := f.competition("2024-10-05")
		f.result(comp.ID, "A", 290)
		f.result(comp.ID, "B", 285)
		f.result(comp.ID, "C", 280)

		ctx, cancel := context.WithTimeout(f.ctx, 5*time.Second)
		defer cancel()
		So(f.svc.WaitIdle(ctx), ShouldBeNil)

		Convey("CalculateSeason recomputes a known season", func() {
			stats, err := f.svc.CalculateSeason(f.ctx, f.season.ID)
			So(err, ShouldBeNil)
			So(stats.Competitions, ShouldEqual, 1)
			So(stats.TeamResults, ShouldEqual, 1)
			So(stats.SeasonResults, ShouldEqual, 1)
		})

		Convey("CalculateSeason rejects an unknown season", func() {
			_, err := f.svc.CalculateSeason(f.ctx, 999)
			So(errors.Is(err, service.ErrSeasonNotFound), ShouldBeTrue)
		})

		Convey("RecalculateSeasons selects seasons by date", func() {
			inside := day("2024-12-24")
			n, err := f.svc.RecalculateSeasons(f.ctx, &inside)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			outside := day("2025-07-01")
			n, err = f.svc.RecalculateSeasons(f.ctx, &outside)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)

			n, err = f.svc.RecalculateSeasons(f.ctx, nil)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})

		Convey("Standings reject an unknown bow type and season", func() {
			_, err := f.svc.SeasonStandings(f.ctx, f.season.ID, "crossbow")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			_, err = f.svc.SeasonStandings(f.ctx, 999, "")
			So(errors.Is(err, service.ErrSeasonNotFound), ShouldBeTrue)
		})

		Convey("A new season carries over teams that played enough", func() {
			next, seeded, err := f.svc.CreateSeason(f.ctx, model.Season{
				Name:        "2025-2026",
				DateStart:   day("2025-09-01"),
				DateEnd:     day("2026-04-30"),
				ResultCount: 5,
				StartLevels: map[model.BowType]int{model.BowRecurve: 4},
			})
			So(err, ShouldBeNil)
			So(seeded, ShouldEqual, 1)

			teams, err := f.store.Teams(f.ctx, next.ID)
			So(err, ShouldBeNil)
			So(teams, ShouldHaveLength, 1)
			So(teams[0].Division, ShouldEqual, 3)
			So(teams[0].Number, ShouldEqual, 1)
		})

		Convey("Stats include row counts", func() {
			stats := f.svc.GetStats()
			counts, ok := stats["counts"].(repository.Counts)
			So(ok, ShouldBeTrue)
			So(counts.Results, ShouldEqual, 3)
			So(counts.Seasons, ShouldEqual, 1)
		})
	})

	Convey("Invalid seasons are rejected", t, func() {
		f := newFixture()
		defer f.svc.Stop()

		bad := []model.Season{
			{Name: "", DateStart: day("2030-01-01"), DateEnd: day("2030-02-01")},
			{Name: "backwards", DateStart: day("2030-02-01"), DateEnd: day("2030-01-01")},
			{Name: "negative", DateStart: day("2030-01-01"), DateEnd: day("2030-02-01"), ResultCount: -1},
			{Name: "level", DateStart: day("2030-01-01"), DateEnd: day("2030-02-01"),
				StartLevels: map[model.BowType]int{model.BowRecurve: 0}},
		}
		for _, s := range bad {
			_, _, err := f.svc.CreateSeason(f.ctx, s)
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		}
	})
}

func TestService_Reports(t *testing.T) {
	Convey("Given register data", t, func() {
		f := newFixture(service.WithMaxRankingLimit(1))
		defer f.svc.Stop()

		comp, err := f.svc.CreateRankedCompetition(f.ctx, model.RankedCompetition{
			Name: "Indoor SM", DateStart: day("2025-02-01"), DateEnd: day("2025-02-02"), Type: ranking.Type18m, Level: "SM",
		})
		So(err, ShouldBeNil)
		for i, score := range []int{560, 540} {
			a, err := f.svc.CreateAthlete(f.ctx, model.Athlete{FirstName: "A", LastName: string(rune('a' + i)), Organization: f.org})
			So(err, ShouldBeNil)
			_, err = f.svc.CreateRegisterResult(f.ctx, model.RegisterResult{
				CompetitionID: comp.ID, AthleteID: a.ID, OrganizationID: f.org.ID,
				Category: "Y", Score: score, Position: i + 1,
			})
			So(err, ShouldBeNil)
		}

		Convey("The ranking is capped by the configured maximum", func() {
			entries, err := f.svc.SJALRanking(f.ctx, ranking.Query{
				Division: ranking.DivisionRecurve, DateStart: day("2025-01-01"), DateEnd: day("2025-12-31"), Limit: 10,
			})
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].Result, ShouldEqual, 560)
		})

		Convey("Organization points sum both placements", func() {
			points, err := f.svc.OrganizationPoints(f.ctx, ranking.PointsQuery{Year: 2025})
			So(err, ShouldBeNil)
			So(points, ShouldHaveLength, 1)
			So(points[0].Value, ShouldEqual, 8+7)
		})

		Convey("Broken references are invalid input", func() {
			_, err := f.svc.CreateAthlete(f.ctx, model.Athlete{FirstName: "X", Organization: model.Organization{ID: 999}})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})
}
