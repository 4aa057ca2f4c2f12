// Package logging builds the structured slog logger shared by every
// HomeAlone component.
//
// Entries carry service and version fields; components add their own name
// via Component. JSON is the default format, "text" is easier to read on a
// terminal:
//
//	logging:
//	  level: info     # debug, info, warn, error
//	  format: json    # json, text
//	  output: stdout  # stdout, stderr
//
// Attributes keyed password, token, secret or jwt_secret are replaced with
// [REDACTED].
package logging
