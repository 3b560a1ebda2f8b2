// Package options implements the typed ledger options: parsing, defaults,
// and the side effects option values have on the store (an operating
// currency implicitly defines its commodity).
package options

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/operations"
	"github.com/robinvdvleuten/zhang/store"
)

// Defaults applied when a builtin option is not set explicitly.
const (
	DefaultOperatingCurrency          = "CNY"
	DefaultRounding                   = store.RoundDown
	DefaultBalanceTolerancePrecision  = int32(2)
	DefaultCommodityPrecision         = int32(2)
	DefaultFallbackTimezone           = "Asia/Hong_Kong"
	DefaultDirectiveOutputPath        = "data/{{.Year}}/{{.MonthStr}}.zhang"
)

// ErrInvalidOptionValue marks option values that cannot be defaulted; it
// aborts the load.
type ErrInvalidOptionValue struct {
	Key   string
	Value string
}

func (e *ErrInvalidOptionValue) Error() string {
	return fmt.Sprintf("invalid value %q for option %q", e.Value, e.Key)
}

// InMemoryOptions is the parsed, typed view of the builtin options.
type InMemoryOptions struct {
	OperatingCurrency                string
	DefaultRounding                  store.Rounding
	DefaultBalanceTolerancePrecision int32
	DefaultCommodityPrecision        int32
	Timezone                         *time.Location
	DirectiveOutputPath              string
	Title                            string
	PluginsEnabled                   bool
}

// Default returns the options with their builtin defaults applied.
func Default() *InMemoryOptions {
	return &InMemoryOptions{
		OperatingCurrency:                DefaultOperatingCurrency,
		DefaultRounding:                  DefaultRounding,
		DefaultBalanceTolerancePrecision: DefaultBalanceTolerancePrecision,
		DefaultCommodityPrecision:        DefaultCommodityPrecision,
		Timezone:                         systemTimezone(),
		DirectiveOutputPath:              DefaultDirectiveOutputPath,
	}
}

// systemTimezone resolves the host timezone, falling back to a fixed zone
// when the system zone cannot be named.
func systemTimezone() *time.Location {
	if name := time.Local.String(); name != "Local" && name != "" {
		return time.Local
	}
	loc, err := time.LoadLocation(DefaultFallbackTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// builtinDefault returns the default string value of a builtin option key.
func builtinDefault(key string) (string, bool) {
	switch key {
	case store.KeyOperatingCurrency:
		return DefaultOperatingCurrency, true
	case store.KeyDefaultRounding:
		return string(DefaultRounding), true
	case store.KeyDefaultBalanceTolerancePrecision:
		return strconv.Itoa(int(DefaultBalanceTolerancePrecision)), true
	case store.KeyDefaultCommodityPrecision:
		return strconv.Itoa(int(DefaultCommodityPrecision)), true
	case store.KeyTimezone:
		return systemTimezone().String(), true
	case store.KeyDirectiveOutputPath:
		return DefaultDirectiveOutputPath, true
	default:
		return "", false
	}
}

// builtinKeys lists the options that receive injected defaults, in the
// order the defaults are executed.
var builtinKeys = []string{
	store.KeyOperatingCurrency,
	store.KeyDefaultRounding,
	store.KeyDefaultBalanceTolerancePrecision,
	store.KeyDefaultCommodityPrecision,
	store.KeyTimezone,
	store.KeyDirectiveOutputPath,
}

// DefaultDirectives returns synthetic Option directives for every builtin
// option key not present in the loaded stream. They are injected ahead of
// the pre-pass so the ledger always carries a complete option set.
func DefaultDirectives(present map[string]bool) []ast.Spanned {
	var directives []ast.Spanned
	for _, key := range builtinKeys {
		if present[key] {
			continue
		}
		value, _ := builtinDefault(key)
		directives = append(directives, ast.NewSpanned(&ast.Option{Key: key, Value: value}, ast.SpanInfo{}))
	}
	return directives
}

// Parse applies an option value: it updates the typed view, performs the
// option's store side effects through ops, and returns the value to store.
// Unknown keys are stored verbatim.
func (o *InMemoryOptions) Parse(key, value string, ops *operations.Operations, span ast.SpanInfo) (string, error) {
	switch key {
	case store.KeyOperatingCurrency:
		if _, exists := ops.Option(store.KeyOperatingCurrency); exists {
			ops.NewError(store.ErrMultipleOperatingCurrencyDetect, span, nil)
		}
		ops.InsertCommodity(value, o.DefaultCommodityPrecision, "", "", o.DefaultRounding)
		o.OperatingCurrency = value

	case store.KeyDefaultRounding:
		rounding, ok := store.ParseRounding(value)
		if !ok {
			return "", &ErrInvalidOptionValue{Key: key, Value: value}
		}
		o.DefaultRounding = rounding

	case store.KeyDefaultBalanceTolerancePrecision:
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			o.DefaultBalanceTolerancePrecision = int32(n)
		}

	case store.KeyDefaultCommodityPrecision:
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			o.DefaultCommodityPrecision = int32(n)
		}

	case store.KeyTimezone:
		loc, err := time.LoadLocation(value)
		if err != nil {
			log.Warn().Str("timezone", value).Msg("invalid timezone option, falling back to system timezone")
			o.Timezone = systemTimezone()
			return o.Timezone.String(), nil
		}
		o.Timezone = loc

	case store.KeyDirectiveOutputPath:
		o.DirectiveOutputPath = value

	case store.KeyTitle:
		o.Title = value

	case store.KeyFeaturesPlugin:
		o.PluginsEnabled = value == "true"
	}

	return value, nil
}
