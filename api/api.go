// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/roundel-labs/roundel/api/utils"
	"github.com/roundel-labs/roundel/builtin/reverts"
	"github.com/roundel-labs/roundel/log"
	"github.com/roundel-labs/roundel/metrics"
	"github.com/roundel-labs/roundel/node"
)

var logger = log.WithContext("pkg", "api")

// Options of the api router.
type Options struct {
	AllowedOrigins string
	EnableMetrics  bool
}

// convertEngineError maps engine revert errors onto http statuses.
func convertEngineError(err error) error {
	if reverts.IsRevertErr(err) {
		switch err {
		case reverts.ErrRoundNotFinished, reverts.ErrNoRewardAvailable, reverts.ErrInvalidRound:
			return utils.BadRequest(err)
		case reverts.ErrAlreadyClaimed:
			return utils.Conflict(err)
		default:
			return utils.Forbidden(err)
		}
	}
	return err
}

// New return api router.
func New(n *node.Node, opts Options) http.Handler {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()
	NewRewards(n).Mount(router, "/rewards")
	NewPools(n).Mount(router, "/pools")
	NewStatus(n).Mount(router, "/node")
	if opts.EnableMetrics {
		router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	}

	logger.Debug("api router assembled", "origins", origins)
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(router)
}
