// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"math/big"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/roundel-labs/roundel/api/utils"
	"github.com/roundel-labs/roundel/node"
	"github.com/roundel-labs/roundel/roundel"
)

// Pools exposes the pool reward cascade: breakdowns, miner claims,
// service fee claims, burns and historical membership resolution.
type Pools struct {
	node *node.Node
}

func NewPools(node *node.Node) *Pools {
	return &Pools{node}
}

func (p *Pools) handleGetBreakdown(w http.ResponseWriter, req *http.Request) error {
	pool, err := parseAddressVar(req, "pool")
	if err != nil {
		return err
	}
	round, err := parseRound(req)
	if err != nil {
		return err
	}
	breakdown, err := p.node.PoolBreakdown(pool, round)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, breakdown)
}

func (p *Pools) handleGetMinerOwed(w http.ResponseWriter, req *http.Request) error {
	round, err := parseRound(req)
	if err != nil {
		return err
	}
	miner, err := parseAddressVar(req, "address")
	if err != nil {
		return err
	}
	amount, claimed, err := p.node.MinerOwed(round, miner)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &owedResponse{round, miner, amount, claimed})
}

func (p *Pools) handleClaimMiner(w http.ResponseWriter, req *http.Request) error {
	round, err := parseRound(req)
	if err != nil {
		return err
	}
	miner, err := parseAddressVar(req, "address")
	if err != nil {
		return err
	}
	amount, err := p.node.ClaimMinerReward(round, miner)
	if err != nil {
		return convertEngineError(err)
	}
	return utils.WriteJSON(w, &owedResponse{round, miner, amount, true})
}

type serviceFeeRequest struct {
	Caller roundel.Address `json:"caller"`
}

func (p *Pools) handleClaimServiceFee(w http.ResponseWriter, req *http.Request) error {
	pool, err := parseAddressVar(req, "pool")
	if err != nil {
		return err
	}
	round, err := parseRound(req)
	if err != nil {
		return err
	}
	var body serviceFeeRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(err)
	}
	amount, err := p.node.ClaimServiceFee(pool, round, body.Caller)
	if err != nil {
		return convertEngineError(err)
	}
	return utils.WriteJSON(w, utils.M{"pool": pool, "round": round, "amount": amount})
}

func (p *Pools) handleBurn(w http.ResponseWriter, req *http.Request) error {
	pool, err := parseAddressVar(req, "pool")
	if err != nil {
		return err
	}
	round, err := parseRound(req)
	if err != nil {
		return err
	}
	amount, err := p.node.BurnIfNeeded(pool, round)
	if err != nil {
		return convertEngineError(err)
	}
	return utils.WriteJSON(w, utils.M{"pool": pool, "round": round, "amount": amount})
}

type membershipResponse struct {
	Account roundel.Address  `json:"account"`
	Round   uint32           `json:"round"`
	Pool    *roundel.Address `json:"pool"`
}

func (p *Pools) handleGetMembership(w http.ResponseWriter, req *http.Request) error {
	account, err := parseAddressVar(req, "address")
	if err != nil {
		return err
	}
	round, err := parseRound(req)
	if err != nil {
		return err
	}
	pool, ok, err := p.node.PoolByRound(account, round)
	if err != nil {
		return err
	}
	resp := membershipResponse{Account: account, Round: round}
	if ok {
		resp.Pool = &pool
	}
	return utils.WriteJSON(w, &resp)
}

type votesRequest struct {
	Distrust *big.Int `json:"distrust"`
	Total    *big.Int `json:"total"`
}

func (p *Pools) handleSetVotes(w http.ResponseWriter, req *http.Request) error {
	pool, err := parseAddressVar(req, "pool")
	if err != nil {
		return err
	}
	round, err := parseRound(req)
	if err != nil {
		return err
	}
	var body votesRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(err)
	}
	if body.Distrust == nil || body.Total == nil {
		return utils.BadRequest(errors.New("distrust and total required"))
	}
	if err := p.node.SetVotes(pool, round, body.Distrust, body.Total); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Mount adds pool routes to the router.
func (p *Pools) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/{pool}/rounds/{round}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetBreakdown))
	sub.Path("/{pool}/rounds/{round}/servicefee").
		Methods(http.MethodPost).
		HandlerFunc(utils.WrapHandlerFunc(p.handleClaimServiceFee))
	sub.Path("/{pool}/rounds/{round}/burn").
		Methods(http.MethodPost).
		HandlerFunc(utils.WrapHandlerFunc(p.handleBurn))
	sub.Path("/{pool}/rounds/{round}/votes").
		Methods(http.MethodPost).
		HandlerFunc(utils.WrapHandlerFunc(p.handleSetVotes))
	sub.Path("/miners/{address}/rounds/{round}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetMinerOwed))
	sub.Path("/miners/{address}/rounds/{round}/claims").
		Methods(http.MethodPost).
		HandlerFunc(utils.WrapHandlerFunc(p.handleClaimMiner))
	sub.Path("/members/{address}/rounds/{round}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetMembership))
}
