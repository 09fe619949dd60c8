package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"
)

// Wallet is one sending identity. Its position in the loaded slice is
// the wallet index used across the engine.
type Wallet struct {
	Name    string
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// New creates a wallet from a hex-encoded private key.
func New(name, hexKey string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Wallet{
		Name:    name,
		Key:     key,
		Address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (w *Wallet) String() string {
	return w.Address.Hex()
}

// walletFile is the on-disk YAML layout.
type walletFile struct {
	Wallets []struct {
		Name       string `yaml:"name"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"wallets"`
}

// LoadWallets reads the wallet pool from a YAML file. Order in the file
// defines the wallet indexes for the run.
func LoadWallets(path string) ([]*Wallet, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file walletFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Wallets) == 0 {
		return nil, fmt.Errorf("no wallets found in configuration")
	}

	wallets := make([]*Wallet, 0, len(file.Wallets))
	for i, entry := range file.Wallets {
		if entry.PrivateKey == "" {
			return nil, fmt.Errorf("wallet %d (%q) has no private key", i, entry.Name)
		}
		name := entry.Name
		if name == "" {
			name = fmt.Sprintf("wallet-%d", i)
		}
		w, err := New(name, entry.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("wallet %d (%q): %w", i, name, err)
		}
		wallets = append(wallets, w)
	}

	return wallets, nil
}
