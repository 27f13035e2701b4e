package config

import "lendingrisk/native/lending"

// File is the on-disk layout of the risk configuration.
//
//	[lending]
//	BorrowMargin = "0.99"
//
//	[lending.pauses]
//	Borrow = true
type File struct {
	Lending lending.Config `toml:"lending"`
}

// Risk bundles the runtime values resolved from a File.
type Risk struct {
	Params lending.Params
	Pauses lending.ActionPauses
}
