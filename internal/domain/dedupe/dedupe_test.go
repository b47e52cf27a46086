package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	dedupe "github.com/okian/divari/internal/domain/dedupe"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a key is new", func() {
			seen := d.SeenAndRecord(ctx, "season:1")

			Convey("Then it is recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key is pending", func() {
			d.SeenAndRecord(ctx, "season:1")
			seen := d.SeenAndRecord(ctx, "season:1")

			Convey("Then the second request coalesces", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a pending key is unrecorded", func() {
			d.SeenAndRecord(ctx, "season:1")
			d.Unrecord(ctx, "season:1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "season:1"), ShouldBeFalse)
			})
		})

		Convey("Unrecording an unknown key is a no-op", func() {
			d.Unrecord(ctx, "season:404")
			So(d.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
		d.SeenAndRecord(ctx, "a")
		d.SeenAndRecord(ctx, "b")

		Convey("Keys beyond the bound are not recorded", func() {
			So(d.SeenAndRecord(ctx, "c"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "c"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 2)
		})

		Convey("Recorded keys still coalesce", func() {
			So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 10000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("season:%d", i))
		}
		So(d.Size(), ShouldEqual, 10000)
	})
}

func TestInMemoryDeduper_Concurrency(t *testing.T) {
	Convey("Exactly one concurrent caller records a key", t, func() {
		d := dedupe.NewInMemoryDeduper()
		ctx := context.Background()

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "season:1") {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		So(fresh, ShouldEqual, 1)
		So(d.Size(), ShouldEqual, 1)
	})
}
