// Package actions provides this repository's built-in maintenance actions:
// concrete Steppers for the scheduler in internal/maintenance, registered
// under a stable "name" so they can be admitted by description alone.
package actions
