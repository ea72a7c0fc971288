package main

import (
	"io/ioutil"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRenderCmd(opts *options) *cobra.Command {
	var dataFile, content string
	var cmd = &cobra.Command{
		Use:   "render <dir> <name>",
		Short: "Render the named template from dir",
		Long: "Render the named template from dir\n\n" +
			"Data is read from a YAML or JSON file given by --data.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data, err = readData(dataFile)
			if err != nil {
				return err
			}
			c, err := opts.bundle(args[0])
			if err != nil {
				return err
			}
			html, err := c.Render(args[1], data, content)
			if err != nil {
				return err
			}
			return opts.write(cmd, html)
		},
	}
	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "YAML or JSON file holding the template data")
	cmd.Flags().StringVar(&content, "content", "", "content for the template's <content> slot")
	return cmd
}

// readData decodes the data file.  JSON is a subset of YAML.
func readData(filename string) (interface{}, error) {
	if filename == "" {
		return nil, nil
	}
	var raw, err = ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var data interface{}
	if err = yaml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
