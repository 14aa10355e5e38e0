package personalization

var defaultWidgetDefinitions = []WidgetMetadata{
	{
		ID:             "pipeline_overview",
		Label:          "Pipeline Overview",
		Description:    "Open opportunities by stage with weighted totals.",
		Category:       "sales",
		RequiredView:   ViewPresales,
		DefaultVisible: true,
		DefaultOrder:   0,
		Component:      "charts.pipeline_funnel",
		NavigateTo:     "/pipeline",
	},
	{
		ID:             "quote_activity",
		Label:          "Quote Activity",
		Description:    "Quotes created, sent, and accepted over the last 30 days.",
		Category:       "sales",
		RequiredView:   ViewPresales,
		DefaultVisible: true,
		DefaultOrder:   1,
		Component:      "charts.quote_activity",
		NavigateTo:     "/quotes",
	},
	{
		ID:             "revenue_trend",
		Label:          "Revenue Trend",
		Description:    "Recognized revenue against target, month over month.",
		Category:       "finance",
		RequiredView:   ViewBoth,
		DefaultVisible: true,
		DefaultOrder:   2,
		Component:      "charts.revenue_trend",
	},
	{
		ID:             "tasks",
		Label:          "My Tasks",
		Description:    "Tasks assigned to you, ordered by due date.",
		Category:       "productivity",
		RequiredView:   ViewBoth,
		DefaultVisible: true,
		DefaultOrder:   3,
		Component:      "tables.task_list",
		NavigateTo:     "/tasks",
	},
	{
		ID:             "renewals_due",
		Label:          "Renewals Due",
		Description:    "Accounts with contracts expiring in the next 90 days.",
		Category:       "accounts",
		RequiredView:   ViewPostsales,
		DefaultVisible: true,
		DefaultOrder:   4,
		Component:      "tables.renewals",
		NavigateTo:     "/accounts/renewals",
	},
	{
		ID:             "support_queue",
		Label:          "Support Queue",
		Description:    "Open tickets by severity for your accounts.",
		Category:       "accounts",
		RequiredView:   ViewPostsales,
		RequiredRoles:  []string{"admin", "support"},
		DefaultVisible: true,
		DefaultOrder:   5,
		Component:      "tables.support_queue",
	},
	{
		ID:             "partner_leaderboard",
		Label:          "Partner Leaderboard",
		Description:    "Top referring partners ranked by sourced pipeline.",
		Category:       "partners",
		RequiredView:   ViewPresales,
		RequiredRoles:  []string{"admin", "manager"},
		DefaultVisible: false,
		DefaultOrder:   6,
		Component:      "tables.partner_leaderboard",
		NavigateTo:     "/partners",
	},
	{
		ID:             "team_utilization",
		Label:          "Team Utilization",
		Description:    "Billable utilization per team member this quarter.",
		Category:       "productivity",
		RequiredView:   ViewBoth,
		RequiredRoles:  []string{"admin", "manager"},
		DefaultVisible: false,
		DefaultOrder:   7,
		Component:      "charts.utilization_heatmap",
	},
}

// DefaultWidgetDefinitions returns copies of the built-in widget definitions.
func DefaultWidgetDefinitions() []WidgetMetadata {
	out := make([]WidgetMetadata, len(defaultWidgetDefinitions))
	for i, def := range defaultWidgetDefinitions {
		cp := def
		if def.RequiredRoles != nil {
			cp.RequiredRoles = append([]string{}, def.RequiredRoles...)
		}
		out[i] = cp
	}
	return out
}
