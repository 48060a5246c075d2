// Package types provides type definitions for the structured records passed between pipeline stages.
//
//nolint:revive // types is a standard Go package name pattern
package types

// ProductSpecs is the ground-truth description of a jewelry item extracted from its photo.
// It is produced once by the analyst and never modified afterwards.
type ProductSpecs struct {
	MetalType           string    `json:"metal_type" validate:"notblank"`
	MainStone           MainStone `json:"main_stone" validate:"required"`
	SettingStyle        string    `json:"setting_style" validate:"notblank"`
	UniqueImperfections string    `json:"unique_imperfections" validate:"notblank"`
}

// MainStone describes the primary gemstone. Carat is the only optional field.
type MainStone struct {
	Cut     string `json:"cut" validate:"notblank"`
	Color   string `json:"color" validate:"notblank"`
	Clarity string `json:"clarity" validate:"notblank"`
	Carat   string `json:"carat,omitempty"`
}
