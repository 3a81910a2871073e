//go:build !windows

package graft

import (
	"log/syslog"

	"go.uber.org/zap/zapcore"
)

// LogToSyslog redirects diagnostic output to the system log facility.
func LogToSyslog(tag string) error {
	w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, tag)
	if err != nil {
		return err
	}
	swapSink(zapcore.AddSync(w), w)
	return nil
}
