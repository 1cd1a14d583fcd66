// Command ramose is a one-shot CLI for exercising a RAMOSE spec file
// without standing up the full ramoseserver process: make one call
// against it, print its API description, or serve it on a local port
// for interactive testing. It mirrors the original ramose.py script's
// command-line surface (-s/-m/-c/-f/-o/-w), replacing its HTML
// documentation generator with a JSON summary of the loaded operations
// (-d), a subset of what ramoseserver serves at /ramose/describe.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/opencitations/ramose/addon/example"
	"github.com/opencitations/ramose/internal/addon"
	"github.com/opencitations/ramose/internal/executor"
	"github.com/opencitations/ramose/internal/routetable"
	"github.com/opencitations/ramose/ramose"
	"github.com/spf13/cobra"
)

var (
	specPaths  []string
	method     string
	call       string
	format     string
	outputPath string
	webserver  string
	doc        bool
)

func main() {
	root := &cobra.Command{
		Use:   "ramose",
		Short: "Restful API Manager Over SPARQL Endpoints",
		Long: "RAMOSE exposes a RESTful API in front of a SPARQL endpoint, driven entirely " +
			"by the operations declared in one or more Hash-Format specification files.",
		RunE: run,
	}

	root.Flags().StringSliceVarP(&specPaths, "spec", "s", nil, "Hash-Format specification file(s) to load (required)")
	root.Flags().StringVarP(&method, "method", "m", "get", "HTTP method to use for -c")
	root.Flags().StringVarP(&call, "call", "c", "", "the URL to call against the loaded spec, e.g. /api/v1/example/value")
	root.Flags().StringVarP(&format, "format", "f", "application/json", "Accept format for -c")
	root.Flags().BoolVarP(&doc, "doc", "d", false, "print a JSON summary of the loaded operations instead of making a call")
	root.Flags().StringVarP(&outputPath, "output", "o", "", "file to write the response body to, instead of stdout")
	root.Flags().StringVarP(&webserver, "webserver", "w", "", "host:port to serve the spec on for interactive testing")
	_ = root.MarkFlagRequired("spec")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	addons := addon.NewRegistry()
	example.Register(addons)

	if webserver != "" {
		return runWebserver(addons)
	}

	routes := &routetable.RouteTable{}
	for _, path := range specPaths {
		conf, err := routetable.Load(path, addons)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		routes.Add(conf)
	}

	if doc {
		return printDescribe(routes)
	}

	if call == "" {
		return fmt.Errorf("-c/--call is required unless -d/--doc or -w/--webserver is given")
	}

	exec := executor.New(routes, addons)

	rawURL, query := call, url.Values{}
	if idx := strings.IndexByte(call, '?'); idx >= 0 {
		rawURL = call[:idx]
		parsed, err := url.ParseQuery(call[idx+1:])
		if err != nil {
			return fmt.Errorf("parsing query string: %w", err)
		}
		query = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := exec.Execute(ctx, executor.Request{
		Method: strings.ToUpper(method),
		Path:   rawURL,
		Query:  query,
		Accept: format,
	})
	if err != nil {
		return writeOutput(fmt.Sprintf("error: %v\n", err))
	}

	return writeOutput(fmt.Sprintf("# Response HTTP code: %d\n# Content-type: %s\n%s\n", result.Status, result.ContentType, result.Body))
}

func printDescribe(routes *routetable.RouteTable) error {
	type describeOperation struct {
		URLTemplate string   `json:"url_template"`
		Methods     []string `json:"methods"`
		Description string   `json:"description,omitempty"`
	}
	type describeConfiguration struct {
		BaseURL    string              `json:"base_url"`
		Title      string              `json:"title,omitempty"`
		Operations []describeOperation `json:"operations"`
	}

	var configs []describeConfiguration
	for _, conf := range routes.Configurations {
		dc := describeConfiguration{BaseURL: conf.BaseURL, Title: conf.Title}
		for _, route := range conf.Routes {
			var methods []string
			for m, ok := range route.Operation.Methods {
				if ok {
					methods = append(methods, m)
				}
			}
			dc.Operations = append(dc.Operations, describeOperation{
				URLTemplate: route.Operation.URLTemplate,
				Methods:     methods,
				Description: route.Operation.Description,
			})
		}
		configs = append(configs, dc)
	}

	out, err := json.MarshalIndent(configs, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(string(out) + "\n")
}

func writeOutput(s string) error {
	if outputPath == "" {
		fmt.Print(s)
		return nil
	}
	return os.WriteFile(outputPath, []byte(s), 0o644)
}

func runWebserver(addons *addon.Registry) error {
	mgr, err := ramose.NewManager(specPaths, addons, 30*time.Second)
	if err != nil {
		return fmt.Errorf("loading spec: %w", err)
	}

	fmt.Printf("serving %s on http://%s (Ctrl-C to stop)\n", strings.Join(specPaths, ", "), webserver)
	return http.ListenAndServe(webserver, mgr.Handler())
}
