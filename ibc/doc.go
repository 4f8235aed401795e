// Package ibc holds the types shared by every light client: revisioned
// heights, the verification error taxonomy, client status and the
// connection delay rule.
package ibc
