// Package api exposes external interfaces for submitting building jobs,
// streaming execution progress, and retrieving job status. It hosts the REST
// server along with the Prometheus metrics endpoint.
package api
