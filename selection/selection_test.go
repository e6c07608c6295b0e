package selection

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func available(n int) []int {
	episodes := make([]int, n)
	for i := range episodes {
		episodes[i] = i + 1
	}
	return episodes
}

func TestEvaluate(t *testing.T) {
	Convey("Given ten available episodes", t, func() {
		eps := available(10)

		Convey("Wildcard selects everything", func() {
			result, err := Evaluate("*", eps)
			So(err, ShouldBeNil)
			So(result, ShouldResemble, eps)
		})

		Convey("Wildcard with exclusion drops the excluded episode", func() {
			result, err := Evaluate("*,!5", eps)
			So(err, ShouldBeNil)
			So(result, ShouldResemble, []int{1, 2, 3, 4, 6, 7, 8, 9, 10})
		})

		Convey("Range combined with latest-N", func() {
			result, err := Evaluate("1-3,L2", eps)
			So(err, ShouldBeNil)
			So(result, ShouldResemble, []int{1, 2, 3, 9, 10})
		})

		Convey("First-N", func() {
			result, err := Evaluate("F2", eps)
			So(err, ShouldBeNil)
			So(result, ShouldResemble, []int{1, 2})
		})

		Convey("Open-ended range", func() {
			result, err := Evaluate("8-", eps)
			So(err, ShouldBeNil)
			So(result, ShouldResemble, []int{8, 9, 10})
		})

		Convey("Open-started range", func() {
			result, err := Evaluate("-3", eps)
			So(err, ShouldBeNil)
			So(result, ShouldResemble, []int{1, 2, 3})
		})

		Convey("Duplicate and overlapping tokens deduplicate", func() {
			result, err := Evaluate("1,1,1-2,2", eps)
			So(err, ShouldBeNil)
			So(result, ShouldResemble, []int{1, 2})
		})

		Convey("An out-of-range exact number as sole token is fatal", func() {
			_, err := Evaluate("11", eps)
			So(err, ShouldWrap, ErrEmptySelection)
		})

		Convey("An out-of-range exact number beside a valid token is dropped", func() {
			result, err := Evaluate("11,1-3", eps)
			So(err, ShouldBeNil)
			So(result, ShouldResemble, []int{1, 2, 3})
		})

		Convey("Excluding everything is not fatal", func() {
			result, err := Evaluate("5,!5", eps)
			So(err, ShouldBeNil)
			So(result, ShouldBeEmpty)
		})

		Convey("A reversed range is a hard error", func() {
			_, err := Evaluate("7-3", eps)
			So(err, ShouldWrap, ErrInvalidRange)
		})

		Convey("Unrecognized tokens are dropped", func() {
			result, err := Evaluate("foo,2", eps)
			So(err, ShouldBeNil)
			So(result, ShouldResemble, []int{2})
		})

		Convey("Empty expression is fatal", func() {
			_, err := Evaluate("", eps)
			So(err, ShouldWrap, ErrEmptySelection)
		})
	})

	Convey("Given a sparse episode universe", t, func() {
		eps := []int{3, 7, 12, 20}

		Convey("Ranges intersect with the universe", func() {
			result, err := Evaluate("5-15", eps)
			So(err, ShouldBeNil)
			So(result, ShouldResemble, []int{7, 12})
		})

		Convey("Latest-N respects universe order", func() {
			result, err := Evaluate("L2", eps)
			So(err, ShouldBeNil)
			So(result, ShouldResemble, []int{12, 20})
		})

		Convey("Output is always a sorted subset of the universe", func() {
			result, err := Evaluate("*,!7", eps)
			So(err, ShouldBeNil)
			So(result, ShouldResemble, []int{3, 12, 20})
		})
	})

	Convey("Given an unsorted universe with duplicates", t, func() {
		result, err := Evaluate("*", []int{5, 1, 3, 1})
		So(err, ShouldBeNil)
		So(result, ShouldResemble, []int{1, 3, 5})
	})
}
