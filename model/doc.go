// Package model defines the data model shared by the orchestration services:
// flows, phase configurations, oracle decisions and phase results.
package model
