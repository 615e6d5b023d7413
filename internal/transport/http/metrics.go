package httptransport

import "expvar"

var (
	metricAuthTotal  = expvar.NewInt("auth_total")
	metricAuthErrors = expvar.NewInt("auth_errors_total")

	metricSessionCreateTotal  = expvar.NewInt("session_create_total")
	metricSessionCreateErrors = expvar.NewInt("session_create_errors_total")

	metricActionSubmitTotal  = expvar.NewInt("action_submit_total")
	metricActionSubmitErrors = expvar.NewInt("action_submit_errors_total")

	metricRateLimited = expvar.NewInt("rate_limited_total")
)
