package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/divari/internal/adapters/repository"
	app "github.com/okian/divari/internal/app"
	"github.com/okian/divari/internal/domain/model"
)

func TestRun(t *testing.T) {
	convey.Convey("Given a store with two seasons", t, func() {
		t.Setenv("DIVARI_STORAGE_DRIVER", "memory")
		ctx := context.Background()
		store := repository.NewMemoryStore()
		for _, s := range []model.Season{
			{Name: "2023-2024", DateStart: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC), DateEnd: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), ResultCount: 5},
			{Name: "2024-2025", DateStart: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), DateEnd: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC), ResultCount: 5},
		} {
			_, err := store.CreateSeason(ctx, s)
			convey.So(err, convey.ShouldBeNil)
		}
		var out bytes.Buffer
		withStore := app.WithStore(store)

		convey.Convey("Without flags every season is recalculated", func() {
			convey.So(run(ctx, nil, &out, withStore), convey.ShouldBeNil)
			convey.So(out.String(), convey.ShouldEqual, "recalculated 2 seasons\n")
		})

		convey.Convey("A date selects the season containing it", func() {
			convey.So(run(ctx, []string{"-date", "2025-01-15"}, &out, withStore), convey.ShouldBeNil)
			convey.So(out.String(), convey.ShouldEqual, "recalculated 1 seasons\n")
		})

		convey.Convey("A single season can be named", func() {
			seasons, err := store.Seasons(ctx)
			convey.So(err, convey.ShouldBeNil)
			id := seasons[0].ID
			convey.So(run(ctx, []string{"-season", itoa(id)}, &out, withStore), convey.ShouldBeNil)
			convey.So(out.String(), convey.ShouldStartWith, "season "+itoa(id)+": 0 competitions")
		})

		convey.Convey("Bad flags are rejected", func() {
			convey.So(run(ctx, []string{"-date", "15.1.2025"}, &out, withStore), convey.ShouldNotBeNil)
			convey.So(run(ctx, []string{"-date", "2025-01-15", "-season", "1"}, &out, withStore), convey.ShouldNotBeNil)
			convey.So(run(ctx, []string{"-unknown"}, &out, withStore), convey.ShouldNotBeNil)
		})

		convey.Convey("An unknown season fails", func() {
			err := run(ctx, []string{"-season", "999"}, &out, withStore)
			convey.So(errors.Is(err, app.ErrSeasonNotFound), convey.ShouldBeTrue)
		})
	})
}

func itoa(n int64) string {
	return fmt.Sprint(n)
}
