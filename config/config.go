package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"lendingrisk/native/lending"
)

// LoadOrCreateRisk behaves like LoadRisk, except that a missing file is
// created with the default margins so operators have a template to edit.
func LoadOrCreateRisk(path string) (*Risk, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	return LoadRisk(path)
}

// LoadRisk loads the risk configuration from the given path. The file must
// exist and may only carry known keys.
func LoadRisk(path string) (*Risk, error) {
	file := &File{}
	meta, err := toml.DecodeFile(path, file)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return file.Resolve()
}

// Resolve converts the decoded file into validated runtime values.
func (f File) Resolve() (*Risk, error) {
	params, err := f.Lending.Params()
	if err != nil {
		return nil, err
	}
	risk := &Risk{Params: params, Pauses: f.Lending.Pauses}
	if err := ValidateRisk(*risk); err != nil {
		return nil, err
	}
	return risk, nil
}

// DefaultFile renders DefaultParams as a File.
func DefaultFile() File {
	params := lending.DefaultParams()
	return File{Lending: lending.Config{
		BorrowMargin:              params.BorrowMargin.String(),
		SupplyCapMargin:           params.SupplyCapMargin.String(),
		StableBorrowCeiling:       params.StableBorrowCeiling.String(),
		RepayAllBuffer:            params.RepayAllBuffer.String(),
		WithdrawThresholdBuffer:   params.WithdrawThresholdBuffer.String(),
		WithdrawMargin:            params.WithdrawMargin.String(),
		IsolationCeilingProximity: params.IsolationCeilingProximity.String(),
		NativeGasBuffer:           params.NativeGasBuffer.String(),
		CapMaxedPercent:           params.CapMaxedPercent.String(),
	}}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Risk, error) {
	file := DefaultFile()
	if err := persist(path, file); err != nil {
		return nil, err
	}
	return file.Resolve()
}

func persist(path string, file File) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(file); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
