// Package agent contains the core orchestrator responsible for translating
// natural-language building goals into executable scene plans. It coordinates
// planning, task execution against the remote scene service, and per-session
// conversation memory.
package agent
