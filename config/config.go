package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Modules holds the six registered module addresses used to bootstrap the
// platform registry on first start.
type Modules struct {
	Verification    string `toml:"Verification"`
	Crowdfunding    string `toml:"Crowdfunding"`
	Rewards         string `toml:"Rewards"`
	Escrow          string `toml:"Escrow"`
	CoEp            string `toml:"CoEp"`
	VerificationExt string `toml:"VerificationExt"`
}

type Config struct {
	RPCAddress           string   `toml:"RPCAddress"`
	DataDir              string   `toml:"DataDir"`
	IndexPath            string   `toml:"IndexPath"`
	NetworkName          string   `toml:"NetworkName"`
	Env                  string   `toml:"Env"`
	BlockIntervalSeconds uint64   `toml:"BlockIntervalSeconds"`
	GenesisAdmins        []string `toml:"GenesisAdmins"`
	Modules              Modules  `toml:"Modules"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "filmvault-local"
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./filmvault-data"
	}
	if cfg.BlockIntervalSeconds == 0 {
		cfg.BlockIntervalSeconds = 10
	}
	if cfg.GenesisAdmins == nil {
		cfg.GenesisAdmins = []string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every configured address parses as 20-byte hex.
func (c *Config) Validate() error {
	for _, admin := range c.GenesisAdmins {
		if !ethcommon.IsHexAddress(strings.TrimSpace(admin)) {
			return fmt.Errorf("config: invalid genesis admin address %q", admin)
		}
	}
	modules := []struct {
		name  string
		value string
	}{
		{"Verification", c.Modules.Verification},
		{"Crowdfunding", c.Modules.Crowdfunding},
		{"Rewards", c.Modules.Rewards},
		{"Escrow", c.Modules.Escrow},
		{"CoEp", c.Modules.CoEp},
		{"VerificationExt", c.Modules.VerificationExt},
	}
	for _, module := range modules {
		if strings.TrimSpace(module.value) == "" {
			continue
		}
		if !ethcommon.IsHexAddress(strings.TrimSpace(module.value)) {
			return fmt.Errorf("config: invalid %s module address %q", module.name, module.value)
		}
	}
	return nil
}

// AdminAddresses returns the parsed genesis admin set.
func (c *Config) AdminAddresses() [][20]byte {
	admins := make([][20]byte, 0, len(c.GenesisAdmins))
	for _, admin := range c.GenesisAdmins {
		trimmed := strings.TrimSpace(admin)
		if !ethcommon.IsHexAddress(trimmed) {
			continue
		}
		admins = append(admins, ethcommon.HexToAddress(trimmed))
	}
	return admins
}

// ModuleAddresses returns the parsed module registry addresses and whether
// every slot was configured.
func (c *Config) ModuleAddresses() (map[string][20]byte, bool) {
	entries := map[string]string{
		"verification":    c.Modules.Verification,
		"crowdfunding":    c.Modules.Crowdfunding,
		"rewards":         c.Modules.Rewards,
		"escrow":          c.Modules.Escrow,
		"coEp":            c.Modules.CoEp,
		"verificationExt": c.Modules.VerificationExt,
	}
	parsed := make(map[string][20]byte, len(entries))
	complete := true
	for name, value := range entries {
		trimmed := strings.TrimSpace(value)
		if !ethcommon.IsHexAddress(trimmed) {
			complete = false
			continue
		}
		parsed[name] = ethcommon.HexToAddress(trimmed)
	}
	return parsed, complete
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:           ":8080",
		DataDir:              "./filmvault-data",
		IndexPath:            "./filmvault-data/index.sqlite",
		NetworkName:          "filmvault-local",
		Env:                  "dev",
		BlockIntervalSeconds: 10,
		GenesisAdmins:        []string{},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
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
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
