// Package idgen centralises identifier generation so it can be stubbed in
// tests.
package idgen
