package main

import (
	"fmt"
	"io/ioutil"

	"github.com/spf13/cobra"
)

func newCompileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <dir>",
		Short: "Compile every template under dir into one script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c, err = opts.bundle(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "compiled %d templates\n", c.Len())
			return opts.write(cmd, c.String())
		},
	}
}

func newGenerateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <file>",
		Short: "Print the program generated for a single template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text, err = ioutil.ReadFile(args[0])
			if err != nil {
				return err
			}
			src, err := opts.compileOptions().Generate(args[0], string(text))
			if err != nil {
				return err
			}
			return opts.write(cmd, src)
		},
	}
}
