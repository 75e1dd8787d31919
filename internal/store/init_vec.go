//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers sqlite-vec as an auto-loadable extension with the
	// mattn/go-sqlite3 driver. detectVecExtension picks it up at open.
	vec.Auto()
}
