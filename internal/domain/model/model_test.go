package model_test

import (
	"testing"

	model "github.com/okian/salescore/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestDimensions(t *testing.T) {
	convey.Convey("Given the personality dimensions", t, func() {
		convey.Convey("Then they are listed in tie-break order", func() {
			convey.So(model.Dimensions(), convey.ShouldResemble, []model.Dimension{
				model.Analytical, model.Driver, model.Expressive, model.Amiable,
			})
		})

		convey.Convey("When parsing a mixed-case name", func() {
			d, err := model.ParseDimension("  Driver ")

			convey.Convey("Then it should resolve the dimension", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(d, convey.ShouldEqual, model.Driver)
			})
		})

		convey.Convey("When parsing an unknown name", func() {
			_, err := model.ParseDimension("choleric")

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestCategoryPair(t *testing.T) {
	convey.Convey("Given two categories", t, func() {
		a := model.NewCategoryPair(model.CategoryFinancial, model.CategoryCompetitive)
		b := model.NewCategoryPair(model.CategoryCompetitive, model.CategoryFinancial)

		convey.Convey("Then the pair is order independent", func() {
			convey.So(a, convey.ShouldResemble, b)
			convey.So(a.Key(), convey.ShouldEqual, "competitive+financial")
		})
	})
}

func TestStageOrdering(t *testing.T) {
	convey.Convey("Given the pipeline stages", t, func() {
		convey.Convey("Then indexes follow canonical order", func() {
			for i, s := range model.Stages() {
				convey.So(s.Index(), convey.ShouldEqual, i)
				convey.So(s.Valid(), convey.ShouldBeTrue)
			}
		})

		convey.Convey("Then unknown stages are invalid", func() {
			convey.So(model.Stage("lost").Index(), convey.ShouldEqual, -1)
			convey.So(model.Stage("lost").Valid(), convey.ShouldBeFalse)
		})
	})
}

func TestIntentRank(t *testing.T) {
	convey.Convey("Given intent levels", t, func() {
		convey.So(model.IntentLow.Rank(), convey.ShouldBeLessThan, model.IntentHigh.Rank())
		convey.So(model.IntentLevel("extreme").Rank(), convey.ShouldEqual, -1)
	})
}
