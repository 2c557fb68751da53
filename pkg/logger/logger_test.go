package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given a logger writing JSON into a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWith(&buf, FormatJSON), ShouldBeNil)
		Reset(func() { _ = Init() })
		ctx := context.Background()

		Convey("Info lines carry fields and the caller", func() {
			Get().Info(ctx, "refit complete", Int("iterations", 12), Bool("converged", true))

			var line map[string]any
			So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)
			So(line["msg"], ShouldEqual, "refit complete")
			So(line["iterations"], ShouldEqual, float64(12))
			So(line["converged"], ShouldEqual, true)
			So(line["source"], ShouldContainSubstring, "logger_test.go")
		})

		Convey("Named groups and With fields are kept", func() {
			Named("engine").With(String("event", "e1")).Warn(ctx, "slow", Error(errors.New("boom")))

			out := buf.String()
			So(out, ShouldContainSubstring, `"event":"e1"`)
			So(out, ShouldContainSubstring, `"engine"`)
			So(out, ShouldContainSubstring, "boom")
		})

		Convey("Debug is dropped at the default level and kept after SetLevelString", func() {
			Get().Debug(ctx, "hidden")
			So(buf.Len(), ShouldEqual, 0)

			So(SetLevelString("DEBUG"), ShouldBeNil)
			Get().Debug(ctx, "shown")
			So(buf.String(), ShouldContainSubstring, "shown")
		})
	})
}

func TestLevelAndFormatParsing(t *testing.T) {
	Convey("SetLevelString accepts known levels only", t, func() {
		for _, l := range []string{"debug", "info", "", "warn", "warning", "error"} {
			So(SetLevelString(l), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})

	Convey("ParseFormat maps config strings", t, func() {
		f, err := ParseFormat(" JSON ")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, FormatJSON)

		f, err = ParseFormat("")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, FormatText)

		_, err = ParseFormat("xml")
		So(err, ShouldNotBeNil)
	})
}

func TestNopAndSync(t *testing.T) {
	Convey("Nop swallows everything", t, func() {
		l := Nop().Named("x").With(String("k", "v"))
		l.Error(context.Background(), "never printed")
		So(Sync(), ShouldBeNil)
	})
}
