package main

import (
	"io/ioutil"
	"os"

	"github.com/robfig/htmling"
	"github.com/spf13/cobra"
)

const appName = "htmling"

// options are the flags shared by every command.
type options struct {
	elements   string
	noOptimize bool
	out        string
}

func newRootCmd() *cobra.Command {
	var opts options
	var root = &cobra.Command{
		Use:   appName + " <command>",
		Short: "Compile and render HTML templates",
		Long: "Compile and render HTML templates\n\n" +
			"Custom elements are read from --elements, or from the file named by $HTMLING_ELEMENTS.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&opts.elements, "elements", "e", os.Getenv("HTMLING_ELEMENTS"),
		"YAML file mapping custom element names to template paths")
	root.PersistentFlags().BoolVar(&opts.noOptimize, "no-optimize", false,
		"skip the optimizer")
	root.PersistentFlags().StringVarP(&opts.out, "out", "o", "",
		"write output to this file instead of stdout")

	root.AddCommand(newCompileCmd(&opts), newGenerateCmd(&opts), newRenderCmd(&opts), newServeCmd(&opts))
	return root
}

func (o *options) compileOptions() htmling.CompileOptions {
	return htmling.CompileOptions{Optimize: !o.noOptimize}
}

// bundle compiles every template under dir.
func (o *options) bundle(dir string) (*htmling.Collection, error) {
	var b = htmling.NewBundle().
		SetCompileOptions(o.compileOptions()).
		AddTemplateDir(dir)
	if o.elements != "" {
		b.AddElementsFile(o.elements)
	}
	return b.Compile()
}

// write sends output to --out, or to the command's standard output.
func (o *options) write(cmd *cobra.Command, output string) error {
	if o.out == "" {
		_, err := cmd.OutOrStdout().Write([]byte(output))
		return err
	}
	return ioutil.WriteFile(o.out, []byte(output), 0644)
}
