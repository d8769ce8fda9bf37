package recovery

// Strategy produces suggested remediation actions for a classified error.
// Strategies are informational only: they never mutate flow state.
type Strategy func(err error, classification Classification, execContext *Context) []string

// defaultStrategies maps each category's named recovery strategy to its
// suggestion generator.
func defaultStrategies() map[string]Strategy {
	return map[string]Strategy{
		"reconnect_database": func(err error, _ Classification, _ *Context) []string {
			return []string{
				"verify database connectivity and credentials",
				"check for long-running transactions holding locks",
				"retry the phase once the connection pool recovers",
			}
		},
		"retry_with_backoff": func(err error, c Classification, _ *Context) []string {
			return []string{
				"verify downstream service availability",
				"retry with exponential backoff",
			}
		},
		"fix_input": func(err error, _ Classification, execContext *Context) []string {
			actions := []string{"correct the phase input and re-run; validation errors are not retried"}
			if execContext != nil && execContext.Phase != "" {
				actions = append(actions, "review pre-validators configured for phase "+execContext.Phase)
			}
			return actions
		},
		"escalate_access": func(err error, _ Classification, _ *Context) []string {
			return []string{
				"verify the acting subject has the required role",
				"escalate to an operator; permission errors are not retried",
			}
		},
		"extend_deadline": func(err error, _ Classification, _ *Context) []string {
			return []string{
				"check downstream latency before retrying",
				"consider raising the phase deadline or splitting the workload",
			}
		},
		"release_resources": func(err error, _ Classification, _ *Context) []string {
			return []string{
				"free or scale the exhausted resource before retrying",
				"review per-flow resource quotas",
			}
		},
		"restart_worker": func(err error, _ Classification, _ *Context) []string {
			return []string{
				"restart or replace the failed worker",
				"inspect worker logs for the underlying fault",
			}
		},
		"review_rules": func(err error, _ Classification, _ *Context) []string {
			return []string{"review the business rule that rejected the operation"}
		},
		"manual_review": func(err error, _ Classification, _ *Context) []string {
			return []string{"unclassified failure; inspect logs and retry manually"}
		},
	}
}
