package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/genie-cli/genie/pkg/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("NewLoggerWithWriters", func() {
	It("writes to all given writers", func() {
		var buf1, buf2 bytes.Buffer
		l := logger.NewLoggerWithWriters(false, &buf1, &buf2)
		l.Info("fan out")
		_ = l.Sync()

		Expect(buf1.String()).To(ContainSubstring("fan out"))
		Expect(buf2.String()).To(ContainSubstring("fan out"))
	})

	It("filters debug records at info level", func() {
		var buf bytes.Buffer
		l := logger.NewLoggerWithWriters(false, &buf)
		l.Debug("hidden")
		_ = l.Sync()

		Expect(buf.String()).To(BeEmpty())
	})

	It("emits debug records in debug mode", func() {
		var buf bytes.Buffer
		l := logger.NewLoggerWithWriters(true, &buf)
		l.Debug("visible")
		_ = l.Sync()

		Expect(buf.String()).To(ContainSubstring("visible"))
	})
})

var _ = Describe("New", func() {
	It("creates a default text logger", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf))
		l.Info("hello", "key", "value")

		output := buf.String()
		Expect(output).To(ContainSubstring("hello"))
		Expect(output).To(ContainSubstring("key"))
		Expect(output).To(ContainSubstring("value"))
	})

	It("respects debug level", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
		l.Debug("debug msg")

		Expect(buf.String()).To(ContainSubstring("debug msg"))
	})

	It("creates a JSON logger", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
		l.Info("structured", "count", 42)

		var parsed map[string]any
		err := json.Unmarshal(buf.Bytes(), &parsed)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed["msg"]).To(Equal("structured"))
		Expect(parsed["count"]).To(BeNumerically("==", 42))
	})

	It("creates a pretty logger", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true))
		l.Info("pretty output")

		Expect(buf.String()).To(ContainSubstring("pretty output"))
	})

	It("supports multiple writers", func() {
		var buf1, buf2 bytes.Buffer
		l := logger.New(logger.WithWriters(&buf1, &buf2))
		l.Info("multi")

		Expect(buf1.String()).To(ContainSubstring("multi"))
		Expect(buf2.String()).To(ContainSubstring("multi"))
	})
})

var _ = Describe("Nop", func() {
	It("discards all output", func() {
		l := logger.Nop()
		Expect(l.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
		Expect(func() {
			l.With("key", "value").Info("msg")
			l.WithGroup("group").Error("msg")
		}).NotTo(Panic())
	})
})

var _ = Describe("Multi", func() {
	It("dispatches to all loggers", func() {
		var buf1, buf2 bytes.Buffer
		l1 := logger.New(logger.WithWriter(&buf1))
		l2 := logger.New(logger.WithWriter(&buf2), logger.WithJSON(true))
		multi := logger.Multi(l1, l2)

		multi.Info("broadcast", "key", "val")

		Expect(buf1.String()).To(ContainSubstring("broadcast"))
		Expect(buf2.String()).To(ContainSubstring("broadcast"))
	})

	It("supports WithGroup on the fan-out logger", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
		multi := logger.Multi(l)

		multi.WithGroup("request").Info("processed", "method", "GET")

		var parsed map[string]any
		err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed)
		Expect(err).NotTo(HaveOccurred())

		group, ok := parsed["request"].(map[string]any)
		Expect(ok).To(BeTrue(), "expected 'request' group in JSON output")
		Expect(group["method"]).To(Equal("GET"))
	})
})
