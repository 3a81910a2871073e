package graft

import "errors"

// LogToSyslog is not available on Windows; use LogToFile instead.
func LogToSyslog(tag string) error {
	return errors.New("syslog is not available on windows")
}
