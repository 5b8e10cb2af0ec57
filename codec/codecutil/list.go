/*
DESCRIPTION
  list.go lists the AV1 input stream formats understood by the decoder tools.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

import (
	"path/filepath"
	"strings"
)

// All available input formats for reference in any application.
// When adding or removing a format from this list, the IsValid function below must be updated.
const (
	IVF = "ivf" // AV1 temporal units in an IVF container.
	OBU = "obu" // Low overhead OBU bytestream (requires lexing).
)

// IsValid checks if a string is a known and valid format in the right format.
func IsValid(s string) bool {
	switch s {
	case IVF, OBU:
		return true
	default:
		return false
	}
}

// FormatOf returns the format of the named file from its extension, ignoring
// any .zst suffix. Unknown extensions are taken to be IVF.
func FormatOf(name string) string {
	name = strings.TrimSuffix(name, ".zst")
	switch strings.ToLower(filepath.Ext(name)) {
	case ".obu", ".av1":
		return OBU
	default:
		return IVF
	}
}
