// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/roundel-labs/roundel/roundel"
)

// AccountConfig describes a staked participant.
type AccountConfig struct {
	Address string `yaml:"address"`
	Stake   string `yaml:"stake"`
	Pool    string `yaml:"pool,omitempty"`
}

// PoolConfig describes a pool and its registered owner.
type PoolConfig struct {
	ID    string `yaml:"id"`
	Owner string `yaml:"owner"`
}

// Config is the solo deployment config.
type Config struct {
	ServiceFeeRateBps uint64          `yaml:"serviceFeeRateBps"`
	RoundReward       string          `yaml:"roundReward"`
	Pools             []PoolConfig    `yaml:"pools"`
	Accounts          []AccountConfig `yaml:"accounts"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return &cfg, nil
}

type participant struct {
	addr  roundel.Address
	stake *big.Int
	pool  roundel.Address
}

type poolInfo struct {
	id    roundel.Address
	owner roundel.Address
}

// resolve parses and validates the config into wire-ready collaborators.
func (c *Config) resolve() (*soloSet, error) {
	set := &soloSet{
		owners:      make(map[roundel.Address]roundel.Address),
		members:     make(map[roundel.Address][]participant),
		roundReward: new(big.Int),
	}
	if c.RoundReward != "" {
		reward, ok := new(big.Int).SetString(c.RoundReward, 10)
		if !ok {
			return nil, errors.Errorf("invalid round reward %q", c.RoundReward)
		}
		set.roundReward = reward
	}
	for _, pc := range c.Pools {
		id, err := roundel.ParseAddress(pc.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pool id %q", pc.ID)
		}
		owner, err := roundel.ParseAddress(pc.Owner)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pool owner %q", pc.Owner)
		}
		set.pools = append(set.pools, poolInfo{*id, *owner})
		set.owners[*id] = *owner
	}
	for _, ac := range c.Accounts {
		addr, err := roundel.ParseAddress(ac.Address)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid account address %q", ac.Address)
		}
		stake := new(big.Int)
		if ac.Stake != "" {
			parsed, ok := new(big.Int).SetString(ac.Stake, 10)
			if !ok {
				return nil, errors.Errorf("invalid stake %q", ac.Stake)
			}
			stake = parsed
		}
		p := participant{addr: *addr, stake: stake}
		if ac.Pool != "" {
			pool, err := roundel.ParseAddress(ac.Pool)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid pool %q", ac.Pool)
			}
			if _, known := set.owners[*pool]; !known {
				return nil, errors.Errorf("account %s references unknown pool %s", addr, pool)
			}
			p.pool = *pool
			set.members[*pool] = append(set.members[*pool], p)
		}
		set.participants = append(set.participants, p)
	}
	return set, nil
}
