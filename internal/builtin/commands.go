// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package builtin

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matt-FFFFFF/dsh/internal/ctxlog"
	"github.com/pborman/getopt/v2"
)

// Cd changes the session working directory.
func Cd(c *Context) int {
	opts := getopt.New()
	opts.SetProgram(c.Args[0])
	opts.Bool('L', "keep symbolic links")
	physical := opts.Bool('P', "resolve symbolic links")

	if err := opts.Getopt(c.Args, nil); err != nil {
		c.Errorf("%v", err)
		fmt.Fprintf(c.Stderr, "%s: usage: cd [-L|-P] [dir]\n", c.Args[0]) //nolint:errcheck

		return 2
	}

	args := opts.Args()

	var target string

	switch len(args) {
	case 0:
		target = c.Session.Getenv("HOME")
		if target == "" {
			c.Errorf("HOME not set")
			return 1
		}
	case 1:
		target = args[0]
	default:
		c.Errorf("too many arguments")
		return 1
	}

	if target == "-" {
		dir, err := c.Session.Back()
		if err != nil {
			c.Errorf("OLDPWD not set")
			return 1
		}

		fmt.Fprintln(c.Stdout, dir) //nolint:errcheck

		return 0
	}

	if *physical {
		resolved, err := filepath.EvalSymlinks(c.Session.Resolve(target))
		if err != nil {
			c.Errorf("%s: %v", target, err)
			return 1
		}

		target = resolved
	}

	if err := c.Session.Chdir(target); err != nil {
		c.Errorf("%v", err)
		return 1
	}

	ctxlog.Debug(c.Ctx, "working directory changed", "cwd", c.Session.Cwd())

	return 0
}

// Exit terminates the shell through the session exit hook.
func Exit(c *Context) int {
	code := 0

	switch len(c.Args) {
	case 1:
	case 2:
		n, err := strconv.Atoi(c.Args[1])
		if err != nil {
			c.Errorf("%s: numeric argument required", c.Args[1])
			fmt.Fprintf(c.Stderr, "%s: usage: exit [n]\n", c.Args[0]) //nolint:errcheck

			return 1
		}

		code = n
	default:
		c.Errorf("too many arguments")
		fmt.Fprintf(c.Stderr, "%s: usage: exit [n]\n", c.Args[0]) //nolint:errcheck

		return 1
	}

	ctxlog.Info(c.Ctx, "exit builtin called", "code", code)
	c.Session.Exit(code)

	return code
}

// Help prints usage for builtins.
func Help(c *Context) int {
	opts := getopt.New()
	opts.SetProgram(c.Args[0])
	short := opts.Bool('s', "short usage only")

	if err := opts.Getopt(c.Args, nil); err != nil {
		c.Errorf("%v", err)
		fmt.Fprintf(c.Stderr, "%s: usage: help [-s] [pattern ...]\n", c.Args[0]) //nolint:errcheck

		return 2
	}

	reg := c.Registry
	if reg == nil {
		reg = NewDefault()
	}

	topics := opts.Args()
	if len(topics) == 0 {
		fmt.Fprintln(c.Stdout, "These shell commands are defined internally.")                 //nolint:errcheck
		fmt.Fprintln(c.Stdout, "Type `help name' to find out more about the function `name'.") //nolint:errcheck
		fmt.Fprintln(c.Stdout)                                                                 //nolint:errcheck

		for _, name := range reg.Names() {
			b, _ := reg.Lookup(name)
			fmt.Fprintf(c.Stdout, " %-24s %s\n", b.Usage, b.Summary) //nolint:errcheck
		}

		return 0
	}

	status := 0

	for _, topic := range topics {
		matched := false

		for _, name := range reg.Names() {
			if ok, _ := filepath.Match(topic, name); !ok {
				continue
			}

			matched = true
			b, _ := reg.Lookup(name)

			if *short {
				fmt.Fprintf(c.Stdout, "%s: %s\n", b.Name, b.Usage) //nolint:errcheck
				continue
			}

			fmt.Fprintf(c.Stdout, "%s: %s\n", b.Name, b.Usage) //nolint:errcheck
			fmt.Fprintf(c.Stdout, "    %s\n", b.Summary)       //nolint:errcheck

			if b.Detail != "" {
				fmt.Fprintln(c.Stdout) //nolint:errcheck

				for _, line := range strings.Split(b.Detail, "\n") {
					fmt.Fprintf(c.Stdout, "    %s\n", line) //nolint:errcheck
				}
			}
		}

		if !matched {
			c.Errorf("no help topics match `%s'.", topic)
			status = 1
		}
	}

	return status
}

// Log writes its arguments to stdout and to the diagnostic log.
func Log(c *Context) int {
	msg := strings.Join(c.Args[1:], " ")

	if _, err := fmt.Fprintln(c.Stdout, msg); err != nil {
		return 1
	}

	ctxlog.Info(c.Ctx, msg, "builtin", c.Args[0])

	return 0
}

// Pwd prints the session working directory.
func Pwd(c *Context) int {
	if _, err := fmt.Fprintln(c.Stdout, c.Session.Cwd()); err != nil {
		return 1
	}

	return 0
}
