// Package dashboard defines the NASA Météo route table and wires its views
// to a component source.
package dashboard

import (
	"github.com/nasa-meteo/dashboard/pkg/router"
)

// RouteDashboard is the name of the dashboard route.
const RouteDashboard = "tableaudebord"

// TitleDashboard is the document title of the dashboard route.
const TitleDashboard = "Tableau de bord | NASA Météo"

// ViewDashboard is the view reference of the dashboard route.
const ViewDashboard = "@/views/tableaudebord.html"

// Routes returns the dashboard route definitions in match order.
func Routes() []router.Route {
	return []router.Route{
		{
			Path:      "/",
			Name:      RouteDashboard,
			Component: ViewDashboard,
			Meta: router.Meta{
				router.MetaTitle:      TitleDashboard,
				router.MetaTransition: "fade",
			},
		},
		{
			Path:     "/*pathMatch",
			Redirect: "/",
		},
	}
}

// NewTable builds the dashboard route table.
func NewTable() (*router.Table, error) {
	return router.NewTable(Routes()...)
}
