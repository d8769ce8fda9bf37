// Package orchestra provides a generic flow orchestration engine.
//
// The engine runs multi-phase business flows through a guarded status state
// machine and comes with pluggable service layers such as:
//
//   - lifecycle – flow creation, status transitions and persistence journal
//   - engine    – phase execution with oracle decisions and validation
//   - recovery  – error classification and retry policy
//   - audit     – filtered, rule-evaluated audit trail with exports
//   - status    – read-only progress and engagement aggregation
//
// Orchestra is designed to be embedded in host applications.  End-users
// typically interact with the engine via the high-level Service façade
// exposed by the root package:
//
//	srv := orchestra.New()
//	rt := srv.Runtime()
//	_ = rt.RegisterFlowType(discoveryConfig)
//	rt.RegisterHandler("import_data", importData)
//	flow, _ := rt.CreateFlow(ctx, "", "discovery", "Acme discovery", nil, nil)
//	_, _ = rt.InitializeFlowExecution(ctx, flow.ID, nil)
//	result, _ := rt.ExecutePhase(ctx, flow.ID, "field_mapping", nil, nil)
//
// For more details see the README and individual sub-packages.
package orchestra
