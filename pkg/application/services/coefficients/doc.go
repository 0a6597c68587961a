// Package coefficients computes the age-sex demand multipliers and the
// per-facility workload coefficient derived from them.
package coefficients
