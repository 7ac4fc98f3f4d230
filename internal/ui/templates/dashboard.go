package templates

import "github.com/a-h/templ"

//go:generate templ generate

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

// DashboardProps seeds the input widgets.
type DashboardProps struct {
	DefaultCategory  string
	DefaultFloorArea float64
	Categories       []string
}

// dashboardSignals is the initial datastar signal set bound to the inputs.
func dashboardSignals(props DashboardProps) (string, error) {
	return templ.JSONString(map[string]any{
		"category": props.DefaultCategory,
		"area":     props.DefaultFloorArea,
		"district": "",
		"analyzed": false,
	})
}
