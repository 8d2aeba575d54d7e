// Package auth provides the login strategies used to obtain a store token.
//
// Strategies are selected by name from a Registry. Two stages run in order:
// a human strategy (for example userpass) and a machine-to-machine strategy
// (for example approle) that may use the human token as its own credential.
// See Chain.
//
// Built-in strategies registered on DefaultRegistry:
//   - userpass:   username/password login
//   - approle:    role-id + secret-id exchange for the application role
//   - kubernetes: service-account JWT login
//   - token:      a static token supplied by configuration
package auth
