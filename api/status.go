// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/roundel-labs/roundel/api/utils"
	"github.com/roundel-labs/roundel/node"
)

// Status exposes node-level state: the round counter, token totals,
// balances and the event log.
type Status struct {
	node *node.Node
}

func NewStatus(node *node.Node) *Status {
	return &Status{node}
}

func (s *Status) handleGetRound(w http.ResponseWriter, _ *http.Request) error {
	round, err := s.node.CurrentRound()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"round": round})
}

func (s *Status) handleAdvanceRound(w http.ResponseWriter, _ *http.Request) error {
	round, err := s.node.AdvanceRound()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"round": round})
}

func (s *Status) handleGetSupply(w http.ResponseWriter, _ *http.Request) error {
	supply, err := s.node.TotalSupply()
	if err != nil {
		return err
	}
	burned, err := s.node.TotalBurned()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"totalSupply": supply, "totalBurned": burned})
}

func (s *Status) handleGetBalance(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAddressVar(req, "address")
	if err != nil {
		return err
	}
	balance, err := s.node.Balance(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"address": addr, "balance": balance})
}

func (s *Status) handleGetEvents(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, s.node.Events())
}

func (s *Status) handleRecordMembership(w http.ResponseWriter, req *http.Request) error {
	account, err := parseAddressVar(req, "address")
	if err != nil {
		return err
	}
	pool, err := parseAddressVar(req, "pool")
	if err != nil {
		return err
	}
	if err := s.node.RecordMembership(account, pool); err != nil {
		return convertEngineError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Mount adds status routes to the router.
func (s *Status) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/round").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetRound))
	sub.Path("/round/advance").
		Methods(http.MethodPost).
		HandlerFunc(utils.WrapHandlerFunc(s.handleAdvanceRound))
	sub.Path("/supply").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetSupply))
	sub.Path("/balances/{address}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetBalance))
	sub.Path("/events").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetEvents))
	sub.Path("/members/{address}/pools/{pool}").
		Methods(http.MethodPost).
		HandlerFunc(utils.WrapHandlerFunc(s.handleRecordMembership))
}
