// Package presign validates the time window of a presigned request and
// carries the presigned result.
//
// A presigned request is signed once and later sent by whoever holds it,
// without access to the signing credentials. Config fixes when the window
// opens (StartTime) and how long it stays open (Expires); the window may
// not exceed one week.
package presign
