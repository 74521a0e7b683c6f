package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/zalando/fastlane/logging"
)

func TestLogger(t *testing.T) {
	out := logrus.StandardLogger().Out
	buf := &bytes.Buffer{}
	logrus.SetOutput(buf)
	logrus.SetLevel(logrus.DebugLevel)
	logrus.SetFormatter(&logrus.TextFormatter{})
	defer func() {
		logrus.SetOutput(out)
		logrus.SetLevel(logrus.InfoLevel)
	}()

	var log logging.Logger = &logging.DefaultLog{}

	for _, tt := range []struct {
		name   string
		log    func()
		suffix string
	}{
		{"error", func() { log.Error("error") }, `msg=error`},
		{"errorf", func() { log.Errorf("errorf: %s", "foo") }, `errorf: foo"`},
		{"warn", func() { log.Warn("warn") }, `msg=warn`},
		{"warnf", func() { log.Warnf("warnf: %s", "foo") }, `warnf: foo"`},
		{"info", func() { log.Info("info") }, `msg=info`},
		{"infof", func() { log.Infof("infof: %s", "foo") }, `infof: foo"`},
		{"debug", func() { log.Debug("debug") }, `msg=debug`},
		{"debugf", func() { log.Debugf("debugf: %s", "foo") }, `debugf: foo"`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log()
			s := strings.TrimSpace(buf.String())
			if !strings.HasSuffix(s, tt.suffix) {
				t.Fatalf("want suffix %q, got %q", tt.suffix, s)
			}
		})
	}
}
