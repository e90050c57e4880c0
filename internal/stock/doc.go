// Package stock defines the values produced by a single stock check and the
// error taxonomy shared by every stage of the check.
//
// A check runs Fetcher → Parser → Policy → Sender. Each stage reports failure
// through a *Error whose Kind tells callers which stage failed without having
// to inspect log output.
package stock
