// Package policy defines the declarative decision configuration consumed by
// the rule-based decision oracle.
package policy
