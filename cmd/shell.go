// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/abiosoft/ishell"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/kwactl/pkg/rig"
)

var shellCmd = &cobra.Command{
	Use:   "shell [COMMAND ARGS...]",
	Short: "Interactive command shell",
	Long: `Control the rig from a line-oriented shell.

Commands:
  ports             list serial ports
  connect [PORT]    connect to PORT, or the configured --port/--url
  disconnect        stop the rig if needed and release the port
  fps [N]           show or set the frame rate
  toggle            start or stop recording
  status            show the session state

Given arguments, runs that single command and exits.`,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

const shellKey = "$rig"

func runShell(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	sh := newShell(sess.ctrl)
	if len(args) > 0 {
		return sh.Process(args...)
	}
	sh.Println("kwactl shell - type help for commands")
	sh.Run()
	return nil
}

func newShell(ctrl *rig.Controller) *ishell.Shell {
	sh := ishell.New()
	sh.Set(shellKey, ctrl)
	for _, c := range shellCommands {
		sh.AddCmd(c)
	}
	updatePrompt(sh, ctrl.Status())
	return sh
}

func controllerFrom(c *ishell.Context) *rig.Controller {
	return c.Get(shellKey).(*rig.Controller)
}

type prompter interface {
	SetPrompt(prompt string)
}

func updatePrompt(sh prompter, s rig.Status) {
	switch {
	case s.Link != rig.Connected:
		sh.SetPrompt("[none] > ")
	case s.Run == rig.Running:
		sh.SetPrompt(fmt.Sprintf("%s REC > ", s.Port))
	default:
		sh.SetPrompt(fmt.Sprintf("%s > ", s.Port))
	}
}

func formatStatus(s rig.Status) string {
	port := s.Port
	if port == "" {
		port = "-"
	}
	return fmt.Sprintf("port=%s link=%s run=%s fps=%d", port, s.Link, s.Run, s.FPS)
}

var shellCommands = []*ishell.Cmd{
	{
		Name:    "ports",
		Aliases: []string{"l"},
		Help:    "list serial ports",
		Func: func(c *ishell.Context) {
			ports, err := rig.ListPorts()
			if err != nil {
				c.Err(err)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, p := range ports {
				c.Println(p.String())
			}
		},
	},
	{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PORT]",
		Func: func(c *ishell.Context) {
			ctrl := controllerFrom(c)
			var target string
			if len(c.Args) > 0 {
				target = c.Args[0]
			} else {
				var err error
				if target, _, err = connectionTarget(); err != nil {
					c.Err(err)
					return
				}
			}
			err := ctrl.Connect(target)
			updatePrompt(c, ctrl.Status())
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("Connected to %s\n", target)
		},
	},
	{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "release the port",
		Func: func(c *ishell.Context) {
			ctrl := controllerFrom(c)
			ctrl.Disconnect()
			updatePrompt(c, ctrl.Status())
		},
	},
	{
		Name: "fps",
		Help: "[N]",
		Func: func(c *ishell.Context) {
			ctrl := controllerFrom(c)
			if len(c.Args) == 0 {
				c.Printf("%d\n", ctrl.Fps())
				return
			}
			fps, err := parseFps(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			if err := ctrl.SetFps(fps); err != nil {
				c.Err(err)
			}
		},
	},
	{
		Name:    "toggle",
		Aliases: []string{"t"},
		Help:    "start or stop recording",
		Func: func(c *ishell.Context) {
			ctrl := controllerFrom(c)
			state, err := ctrl.ToggleRun()
			updatePrompt(c, ctrl.Status())
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(state.String())
		},
	},
	{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "show the session state",
		Func: func(c *ishell.Context) {
			c.Println(formatStatus(controllerFrom(c).Status()))
		},
	},
}
