// Package llm contains adapters for the external natural-language planning
// service. It abstracts away provider-specific APIs and normalizes
// request/response lifecycles for use within the agent runtime.
package llm
