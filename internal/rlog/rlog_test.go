package rlog_test

import (
	"testing"

	"github.com/relindex/relindex/internal/rlog"
)

func TestLoggingHelpersDoNotPanic(t *testing.T) {
	rlog.Debug("debug", "k", 1)
	rlog.Info("info", "k", 1)
	rlog.Warn("warn", "k", 1)
	rlog.Error("error", "k", 1)
	rlog.Severe("severe", "k", 1)
}

func TestInitHonorsLogLevelEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "severe")
	rlog.Init()
	rlog.Severe("still works after reconfiguring")
}
