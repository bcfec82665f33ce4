// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package trace wraps external commands in strace and reads back the resulting
// system call log to work out why a command failed.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"syscall"
)

// ErrMalformedLog is returned when no line of a log could be understood.
var ErrMalformedLog = errors.New("malformed trace log")

// Wrap returns the argv that runs argv under the tracer, logging to logPath.
func Wrap(program, logPath string, argv []string) []string {
	wrapped := make([]string, 0, len(argv)+5)
	wrapped = append(wrapped, program, "-f", "-o", logPath, "--")

	return append(wrapped, argv...)
}

// Call is one completed system call from the log.
type Call struct {
	Pid    int
	Name   string
	Args   string
	Result string
	Errno  syscall.Errno // zero when the call succeeded
	Line   int
}

// Failed reports whether the call returned an error.
func (c Call) Failed() bool {
	return c.Errno != 0
}

// Log is a parsed trace log.
type Log struct {
	Calls []Call
	// RootPid is the first pid seen, the traced command itself. Zero when the log has no pid prefixes.
	RootPid int
	// Exit is the exit status of the traced command, -1 if it was killed or never exited.
	Exit int
	// Signal holds the signal name when the command was killed.
	Signal string
}

var (
	pidPrefix = regexp.MustCompile(`^(?:\[pid\s+)?(\d+)\]?\s+`)
	callLine  = regexp.MustCompile(`^([a-z_0-9]+)\((.*)\)\s+=\s+(-?\d+|\?|0x[0-9a-f]+)(?:\s+([A-Z][A-Z0-9_]*)\s*(?:\(.*\))?)?`)
	resumed   = regexp.MustCompile(`^<\.\.\. ([a-z_0-9]+) resumed>(.*)\)\s+=\s+(-?\d+|\?|0x[0-9a-f]+)(?:\s+([A-Z][A-Z0-9_]*)\s*(?:\(.*\))?)?`)
	exited    = regexp.MustCompile(`^\+\+\+ exited with (\d+) \+\+\+`)
	killed    = regexp.MustCompile(`^\+\+\+ killed by (\S+)`)
)

// Parse reads a strace log written with -f.
func Parse(r io.Reader) (*Log, error) {
	log := &Log{Exit: -1}
	unfinished := make(map[int]string)
	understood := 0
	lineNo := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		pid := 0

		if m := pidPrefix.FindStringSubmatch(line); m != nil {
			pid, _ = strconv.Atoi(m[1])
			line = line[len(m[0]):]
		}

		if log.RootPid == 0 && pid != 0 {
			log.RootPid = pid
		}

		switch {
		case strings.HasSuffix(line, "<unfinished ...>"):
			unfinished[pid] = strings.TrimSuffix(line, "<unfinished ...>")
			understood++

		case resumed.MatchString(line):
			m := resumed.FindStringSubmatch(line)
			args := unfinishedArgs(unfinished[pid], m[1]) + m[2]
			delete(unfinished, pid)
			log.Calls = append(log.Calls, newCall(pid, lineNo, m[1], args, m[3], m[4]))
			understood++

		case callLine.MatchString(line):
			m := callLine.FindStringSubmatch(line)
			log.Calls = append(log.Calls, newCall(pid, lineNo, m[1], m[2], m[3], m[4]))
			understood++

		case exited.MatchString(line):
			if pid == log.RootPid {
				log.Exit, _ = strconv.Atoi(exited.FindStringSubmatch(line)[1])
			}

			understood++

		case killed.MatchString(line):
			if pid == log.RootPid {
				log.Exit = -1
				log.Signal = killed.FindStringSubmatch(line)[1]
			}

			understood++

		case strings.HasPrefix(line, "---"):
			understood++ // signal delivery
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace log: %w", err)
	}

	if understood == 0 && lineNo > 0 {
		return nil, ErrMalformedLog
	}

	return log, nil
}

func unfinishedArgs(partial, name string) string {
	if partial == "" {
		return ""
	}

	return strings.TrimPrefix(partial, name+"(")
}

func newCall(pid, line int, name, args, result, errnoName string) Call {
	c := Call{
		Pid:    pid,
		Name:   name,
		Args:   strings.TrimSpace(args),
		Result: result,
		Line:   line,
	}

	if strings.HasPrefix(result, "-") && errnoName != "" {
		c.Errno = errnoValue(errnoName)
		if c.Errno == 0 {
			c.Errno = syscall.EINVAL
		}
	}

	return c
}
