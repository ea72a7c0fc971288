package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/robfig/htmling"
	"github.com/robfig/htmling/data"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	var port int
	var cmd = &cobra.Command{
		Use:   "serve <dir>",
		Short: "Serve the templates under dir for development",
		Long: "Serve the templates under dir for development\n\n" +
			"GET /<name> renders the named template, with the query string as data.\n" +
			"GET /bundle.js returns the compiled collection.\n" +
			"Templates are recompiled as they change.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var b = htmling.NewBundle().
				WatchFiles(true).
				SetCompileOptions(opts.compileOptions()).
				AddTemplateDir(args[0])
			if opts.elements != "" {
				b.AddElementsFile(opts.elements)
			}
			var c, err = b.Compile()
			if err != nil {
				return err
			}
			defer b.Close()

			fmt.Fprintf(cmd.ErrOrStderr(), "Listening on :%d...\n", port)
			return http.ListenAndServe(fmt.Sprintf(":%d", port), handler(c))
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 9812, "port on which to listen")
	return cmd
}

// handler serves the collection.  The collection is updated in place when its
// files change, so every request sees the latest templates.
func handler(c *htmling.Collection) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		var name = strings.TrimPrefix(req.URL.Path, "/")
		if name == "bundle.js" {
			res.Header().Set("Content-Type", "application/javascript")
			c.WriteTo(res)
			return
		}
		if c.Get(name) == nil {
			http.Error(res, "template "+name+" not found", http.StatusNotFound)
			return
		}

		var m = make(data.Map)
		for k, v := range req.URL.Query() {
			m[k] = v[0]
		}

		var html, err = c.Render(name, m, "")
		if err != nil {
			http.Error(res, err.Error(), http.StatusInternalServerError)
			return
		}
		res.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.Copy(res, bytes.NewBufferString(html))
	})
}
