package config

// Hard limits shared by the transaction and block packages.
// These are not operator settings and cannot be changed from the config file.
const (
	// MaxFieldLength is the maximum byte length of a transaction party name.
	MaxFieldLength = 256

	// DefaultPolicyFieldLength is the default intake.max_field_length.
	DefaultPolicyFieldLength = 64

	// MaxBlockTxs is the maximum number of transactions in one block.
	MaxBlockTxs = 10_000
)
