// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/roundel-labs/roundel/api/utils"
	"github.com/roundel-labs/roundel/node"
	"github.com/roundel-labs/roundel/roundel"
)

// Rewards exposes account-level reward queries and claims.
type Rewards struct {
	node *node.Node
}

func NewRewards(node *node.Node) *Rewards {
	return &Rewards{node}
}

func parseRound(req *http.Request) (uint32, error) {
	round, err := strconv.ParseUint(mux.Vars(req)["round"], 10, 32)
	if err != nil {
		return 0, utils.BadRequest(errors.WithMessage(err, "round"))
	}
	return uint32(round), nil
}

func parseAddressVar(req *http.Request, name string) (roundel.Address, error) {
	addr, err := roundel.ParseAddress(mux.Vars(req)[name])
	if err != nil {
		return roundel.Address{}, utils.BadRequest(errors.WithMessage(err, name))
	}
	return *addr, nil
}

type owedResponse struct {
	Round   uint32          `json:"round"`
	Account roundel.Address `json:"account"`
	Amount  *big.Int        `json:"amount"`
	Claimed bool            `json:"claimed"`
}

func (r *Rewards) handleGetOwed(w http.ResponseWriter, req *http.Request) error {
	round, err := parseRound(req)
	if err != nil {
		return err
	}
	account, err := parseAddressVar(req, "address")
	if err != nil {
		return err
	}
	amount, claimed, err := r.node.Owed(round, account)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &owedResponse{round, account, amount, claimed})
}

func (r *Rewards) handleClaim(w http.ResponseWriter, req *http.Request) error {
	round, err := parseRound(req)
	if err != nil {
		return err
	}
	account, err := parseAddressVar(req, "address")
	if err != nil {
		return err
	}
	amount, err := r.node.Claim(round, account)
	if err != nil {
		return convertEngineError(err)
	}
	return utils.WriteJSON(w, &owedResponse{round, account, amount, true})
}

// Mount adds reward routes to the router.
func (r *Rewards) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/{round}/accounts/{address}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(r.handleGetOwed))
	sub.Path("/{round}/accounts/{address}/claims").
		Methods(http.MethodPost).
		HandlerFunc(utils.WrapHandlerFunc(r.handleClaim))
}
