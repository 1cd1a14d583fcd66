package ramose

import (
	"encoding/json"
	"net/http"
	"sort"
)

// describeDocument is the JSON shape returned by /ramose/describe. It
// replaces the original HTML documentation page with a machine-readable
// description of every loaded configuration's operations, suited to
// driving an API explorer or client code generator.
type describeDocument struct {
	Configurations []describeConfiguration `json:"configurations"`
}

type describeConfiguration struct {
	BaseURL     string              `json:"base_url"`
	Website     string              `json:"website,omitempty"`
	Title       string              `json:"title,omitempty"`
	Version     string              `json:"version,omitempty"`
	Description string              `json:"description,omitempty"`
	Contacts    string              `json:"contacts,omitempty"`
	License     string              `json:"license,omitempty"`
	Operations  []describeOperation `json:"operations"`
}

type describeOperation struct {
	URLTemplate string   `json:"url_template"`
	Methods     []string `json:"methods"`
	Description string   `json:"description,omitempty"`
	Call        string   `json:"call,omitempty"`
	OutputJSON  string   `json:"output_json,omitempty"`
}

func (m *Manager) describeHandler(w http.ResponseWriter, r *http.Request) {
	doc := describeDocument{}

	for _, conf := range m.Routes.Configurations {
		dc := describeConfiguration{
			BaseURL:     conf.BaseURL,
			Website:     conf.Website,
			Title:       conf.Title,
			Version:     conf.Version,
			Description: conf.Description,
			Contacts:    conf.Contacts,
			License:     conf.License,
		}
		for _, route := range conf.Routes {
			dc.Operations = append(dc.Operations, describeOperation{
				URLTemplate: route.Operation.URLTemplate,
				Methods:     sortedMethods(route.Operation.Methods),
				Description: route.Operation.Description,
				Call:        route.Operation.Call,
				OutputJSON:  route.Operation.OutputJSON,
			})
		}
		doc.Configurations = append(doc.Configurations, dc)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		http.Error(w, `{"error":"failed to encode describe document"}`, http.StatusInternalServerError)
	}
}

func sortedMethods(methods map[string]bool) []string {
	out := make([]string, 0, len(methods))
	for method, allowed := range methods {
		if allowed {
			out = append(out, method)
		}
	}
	sort.Strings(out)
	return out
}
