//go:build cgo

package sqlite

import (
	// registers DriverCGO
	_ "github.com/mattn/go-sqlite3"
)
