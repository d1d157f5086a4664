// Package gate serves the JSON HTTP surface of the gate controller.
//
// Routes:
//
//	GET  /              banner
//	GET  /health        liveness, plain "OK"
//	GET  /gate/status   status document
//	GET|POST /gate/open   open command, answers with the status document
//	GET|POST /gate/close  close command, answers with the status document
//	GET  /metrics       Prometheus exposition, when a metrics handler is set
package gate
