// Package policy maps tool names to review policies. A Registry is built once
// from configuration (or explicit Register calls) and is then a pure, total
// lookup: tools without an entry fall back to full review.
//
// The configuration surface mirrors the familiar interrupt_on mapping:
//
//	description_prefix: Tool execution pending approval
//	interrupt_on:
//	  write_file: true                 # full review
//	  execute_sql:
//	    allowed_decisions: [approve, reject]
//	  read_data: false                 # no review
//
// A registry can also be attached to a context to override the service-wide
// policies for a single run.
package policy
