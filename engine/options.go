package engine

import (
	"strconv"
	"strings"
)

// statusUnknownModule is what option dispatch returns internally when no registered module has the requested name.
// It is always translated into StatusFailed before reaching the caller.
const statusUnknownModule = StatusWarn - 1

type optionKind int

const (
	boolOption optionKind = iota
	intOption
	uintOption
	stringOption
)

// driverOptions holds the values accepted for one filter or format module. An absent key is unset.
type driverOptions map[string]string

func (o driverOptions) bool(key string) bool {
	return o[key] != ""
}

func (o driverOptions) int(key string) int {
	n, _ := strconv.Atoi(o[key])
	return n
}

func (o driverOptions) uint(key string) uint64 {
	n, _ := strconv.ParseUint(o[key], 10, 64)
	return n
}

// optionHandler applies one module:option=value triple, returning statusUnknownModule or StatusWarn (option not
// recognized by anyone) without setting an error message.
type optionHandler func(a *Archive, module, option, value string) Status

// ReadSetFormatOption sets an option on the registered format named module, or on every registered format if module
// is empty. An empty value unsets the option.
func ReadSetFormatOption(a *Archive, module, option, value string) Status {
	return setOption(a, "archive_read_set_format_option", module, option, value, useFormatOption)
}

// ReadSetFilterOption sets an option on the registered filter named module, or on every registered filter if module
// is empty. An empty value unsets the option.
func ReadSetFilterOption(a *Archive, module, option, value string) Status {
	return setOption(a, "archive_read_set_filter_option", module, option, value, useFilterOption)
}

// ReadSetOption sets an option on formats and filters alike.
func ReadSetOption(a *Archive, module, option, value string) Status {
	return setOption(a, "archive_read_set_option", module, option, value, useEitherOption)
}

// ReadSetOptions parses a comma-separated list of options and applies each with ReadSetOption semantics.
//
// Each item is "[module:]option=value", "[module:]option" (value "1"), or "![module:]option" (unset). The item
// "__ignore_wrong_module_name__" makes unknown module names non-fatal for the rest of the list.
func ReadSetOptions(a *Archive, options string) Status {
	if s := a.check(readMagic, stateNew, "archive_read_set_options"); s != StatusOK {
		return s
	}

	if options == "" {
		return StatusOK
	}

	var (
		allOK, anyOK   = true, false
		ignoreModError = false
	)

	for item := range strings.SplitSeq(options, ",") {
		module, option, value := parseOption(item)

		if module == "" && option == "__ignore_wrong_module_name__" {
			if value != "" {
				ignoreModError, anyOK = true, true
			}
			continue
		}

		switch s := useEitherOption(a, module, option, value); {
		case s == StatusFatal:
			return s
		case s == StatusFailed && module != "":
			return s
		case s == statusUnknownModule:
			if ignoreModError {
				continue
			}
			a.setError(ErrnoMisc, "Unknown module name: `%s'", module)
			return StatusFailed
		case s == StatusWarn:
			a.setError(ErrnoMisc, "Undefined option: `%s'", qualify(module, option))
			return StatusFailed
		case s == StatusOK:
			anyOK = true
		default:
			allOK = false
		}
	}

	switch {
	case allOK:
		return StatusOK
	case anyOK:
		return StatusWarn
	default:
		return StatusFailed
	}
}

// parseOption splits one item of an options string. A "!" prefix is checked before the module is split off.
func parseOption(item string) (module, option, value string) {
	option, value = item, "1"
	if o, v, ok := strings.Cut(item, "="); ok {
		option, value = o, v
	} else if o, ok := strings.CutPrefix(item, "!"); ok {
		option, value = o, ""
	}

	if m, o, ok := strings.Cut(option, ":"); ok {
		module, option = m, o
	}

	return
}

func qualify(module, option string) string {
	if module == "" {
		return option
	}

	return module + ":" + option
}

func setOption(a *Archive, fn, module, option, value string, use optionHandler) Status {
	if s := a.check(readMagic, stateNew, fn); s != StatusOK {
		return s
	}

	if option == "" {
		if module == "" && value == "" {
			return StatusOK
		}

		a.setError(ErrnoMisc, "Empty option")
		return StatusFailed
	}

	switch s := use(a, module, option, value); s {
	case statusUnknownModule:
		a.setError(ErrnoMisc, "Unknown module name: `%s'", module)
		return StatusFailed
	case StatusWarn:
		a.setError(ErrnoMisc, "Undefined option: `%s'", qualify(module, option))
		return StatusFailed
	default:
		return s
	}
}

func useFormatOption(a *Archive, module, option, value string) Status {
	rv, matched := StatusWarn, false

	for _, f := range a.read.formats {
		if f.options == nil || module != "" && f.name != module {
			continue
		}

		matched = true
		switch s := a.read.setDriverOption(a, f.name, f.options, option, value); s {
		case StatusOK:
			rv = StatusOK
		case StatusFailed, StatusFatal:
			return s
		}
	}

	if module != "" && !matched {
		return statusUnknownModule
	}

	return rv
}

func useFilterOption(a *Archive, module, option, value string) Status {
	rv, matched := StatusWarn, false

	for _, f := range a.read.filters {
		if f.options == nil || module != "" && f.name != module {
			continue
		}

		matched = true
		switch s := a.read.setDriverOption(a, f.name, f.options, option, value); s {
		case StatusOK:
			rv = StatusOK
		case StatusFailed, StatusFatal:
			return s
		}
	}

	if module != "" && !matched {
		return statusUnknownModule
	}

	return rv
}

// useEitherOption offers the option to formats first, then filters. A failure on either side wins, and an unknown
// module on one side defers to the other side's verdict.
func useEitherOption(a *Archive, module, option, value string) Status {
	r1 := useFormatOption(a, module, option, value)
	if r1 == StatusFatal {
		return r1
	}

	r2 := useFilterOption(a, module, option, value)
	switch {
	case r2 == StatusFatal:
		return r2
	case r1 == StatusFailed || r2 == StatusFailed:
		return StatusFailed
	case r2 == statusUnknownModule:
		return r1
	case r1 == statusUnknownModule:
		return r2
	}

	return max(r1, r2)
}
