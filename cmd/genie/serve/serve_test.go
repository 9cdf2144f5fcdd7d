package servecmder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestServeCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Serve Command Suite")
}

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("registers the listen flag with shorthand", func() {
		cmd := NewServeCmd()
		f := cmd.Flags().Lookup("listen")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("l"))
		Expect(f.DefValue).To(Equal(":8000"))
	})

	It("registers the log-file flag", func() {
		cmd := NewServeCmd()
		Expect(cmd.Flags().Lookup("log-file")).NotTo(BeNil())
	})
})

var _ = Describe("buildLogger", func() {
	It("returns the pretty stdout logger when no log file is set", func() {
		c := &ServeCommander{}
		slogger, closeLogs, err := c.buildLogger()
		Expect(err).NotTo(HaveOccurred())
		defer closeLogs()
		Expect(slogger).NotTo(BeNil())
	})

	It("fans records out to a JSON log file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "serve.log")

		c := &ServeCommander{logFile: path}
		slogger, closeLogs, err := c.buildLogger()
		Expect(err).NotTo(HaveOccurred())

		slogger.Info("chat query", "request_id", "r1")
		closeLogs()

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())

		var record map[string]any
		Expect(json.Unmarshal(data, &record)).To(Succeed())
		Expect(record["msg"]).To(Equal("chat query"))
		Expect(record["request_id"]).To(Equal("r1"))
	})

	It("fails on an unwritable log file path", func() {
		c := &ServeCommander{logFile: filepath.Join(GinkgoT().TempDir(), "missing", "serve.log")}
		_, _, err := c.buildLogger()
		Expect(err).To(HaveOccurred())
	})
})
