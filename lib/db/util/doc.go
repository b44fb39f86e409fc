// Package util provides helpers shared by the engine implementations of package db.
//
// It currently contains a SizeHistogram that engines use to report the key and
// value size distribution in db.DatabaseInfo without keeping every size around.
package util
