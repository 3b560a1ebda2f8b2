package store

// Builtin option keys stored in the Options table. The options package owns
// parsing and defaulting; the keys live here so readers of the Store can
// reference them without importing the processing layers.
const (
	KeyOperatingCurrency                = "operating_currency"
	KeyDefaultRounding                  = "default_rounding"
	KeyDefaultBalanceTolerancePrecision = "default_balance_tolerance_precision"
	KeyDefaultCommodityPrecision        = "default_commodity_precision"
	KeyTimezone                         = "timezone"
	KeyTitle                            = "title"
	KeyFeaturesPlugin                   = "features.plugin"
	KeyDirectiveOutputPath              = "directive_output_path"
)
