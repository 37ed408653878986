// Package repository implements the engine's store interfaces on MySQL.
// Status transitions are single conditional UPDATEs (compare-and-swap on
// the row's prior state); multi-table transitions run in one transaction
// with the slot row locked.  The engine's sentinel errors are returned
// directly so handlers can translate them uniformly.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else.  Handlers translate this into an HTTP
// 403 response.
var ErrForbidden = errors.New("forbidden")
