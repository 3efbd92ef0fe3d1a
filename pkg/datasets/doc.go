// Package datasets classifies legacy datasets into the closed three-way
// type model and provides the read paths the migration coordinator
// consumes: the legacy key-value registry and the ungrouped-data query
// against the datasets database.
package datasets
