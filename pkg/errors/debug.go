package errors

import "errors"

// DumpInfo flattens an error chain for structured logging.
type DumpInfo struct {
	Code       Code
	TopMessage string
	Chain      []string
}

// Dump walks the error chain and collects every message plus the typed code.
func Dump(err error) DumpInfo {
	info := DumpInfo{Code: CodeInternal}
	if err == nil {
		return info
	}

	info.TopMessage = err.Error()
	if typed := As(err); typed != nil {
		info.Code = typed.Code()
	}

	for current := err; current != nil; current = errors.Unwrap(current) {
		info.Chain = append(info.Chain, current.Error())
	}
	return info
}
