// Package specql is a provider-agnostic data-access toolkit: a typed
// query-specification model, an expression-to-SQL compiler with pluggable
// dialects (SQL Server, PostgreSQL, MySQL), and a reflection-driven
// row-to-struct mapper with cached accessors.
//
// Callers describe a query once (filter, joins, grouping, ordering, paging,
// projection) and compile that description into dialect-correct,
// parameterized SQL. Coming back the other way, raw result rows are
// materialized into typed values without per-row reflection cost.
//
// The packages compose bottom-up:
//
//	expr      expression AST and typed builder
//	spec      immutable query specifications (fluent builder)
//	schema    struct-tag driven table/column metadata
//	dialect   per-database SQL syntax strategies
//	compiler  specification -> SQL statement
//	mapper    result row -> typed value
//	filter    text filter DSL -> expr AST
//	exec      statement execution over database/sql
//	repo      typed repository façade
//
// This package holds the error taxonomy shared by all of them.
package specql
