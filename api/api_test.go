// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundel-labs/roundel/api"
	"github.com/roundel-labs/roundel/lvldb"
	"github.com/roundel-labs/roundel/node"
	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/state"
)

var (
	pool1  = roundel.MustParseAddress("0x0000000000000000000000000000000000000101")
	owner1 = roundel.MustParseAddress("0x0000000000000000000000000000000000000201")
	acc1   = roundel.MustParseAddress("0x0000000000000000000000000000000000000001")
	acc2   = roundel.MustParseAddress("0x0000000000000000000000000000000000000002")
)

func newTestServer(t *testing.T) *httptest.Server {
	kv, _ := lvldb.NewMem()
	cfg := &node.Config{
		ServiceFeeRateBps: 1000,
		RoundReward:       "6000",
		Pools: []node.PoolConfig{
			{ID: pool1.String(), Owner: owner1.String()},
		},
		Accounts: []node.AccountConfig{
			{Address: acc1.String(), Stake: "100", Pool: pool1.String()},
			{Address: acc2.String(), Stake: "200", Pool: pool1.String()},
		},
	}
	n, err := node.New(state.New(kv), cfg)
	require.Nil(t, err)

	ts := httptest.NewServer(api.New(n, api.Options{AllowedOrigins: "*"}))
	t.Cleanup(ts.Close)
	return ts
}

func httpGet(t *testing.T, url string) (int, []byte) {
	res, err := http.Get(url) //#nosec G107
	require.Nil(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.Nil(t, err)
	return res.StatusCode, body
}

func httpPost(t *testing.T, url string, body any) (int, []byte) {
	data, err := json.Marshal(body)
	require.Nil(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data)) //#nosec G107
	require.Nil(t, err)
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.Nil(t, err)
	return res.StatusCode, out
}

func advanceRound(t *testing.T, ts *httptest.Server) {
	code, _ := httpPost(t, ts.URL+"/node/round/advance", nil)
	require.Equal(t, http.StatusOK, code)
}

func TestRoundEndpoints(t *testing.T) {
	ts := newTestServer(t)

	code, body := httpGet(t, ts.URL+"/node/round")
	assert.Equal(t, http.StatusOK, code)
	var round map[string]uint32
	require.Nil(t, json.Unmarshal(body, &round))
	assert.Equal(t, uint32(1), round["round"])

	advanceRound(t, ts)
	code, body = httpGet(t, ts.URL+"/node/round")
	assert.Equal(t, http.StatusOK, code)
	require.Nil(t, json.Unmarshal(body, &round))
	assert.Equal(t, uint32(2), round["round"])
}

func TestOwedAndClaimEndpoints(t *testing.T) {
	ts := newTestServer(t)
	advanceRound(t, ts)

	code, body := httpGet(t, ts.URL+"/rewards/1/accounts/"+acc1.String())
	assert.Equal(t, http.StatusOK, code)
	var owed struct {
		Amount  *big.Int `json:"amount"`
		Claimed bool     `json:"claimed"`
	}
	require.Nil(t, json.Unmarshal(body, &owed))
	assert.Equal(t, big.NewInt(2000), owed.Amount)
	assert.False(t, owed.Claimed)

	code, body = httpPost(t, ts.URL+"/rewards/1/accounts/"+acc1.String()+"/claims", nil)
	assert.Equal(t, http.StatusOK, code)
	require.Nil(t, json.Unmarshal(body, &owed))
	assert.Equal(t, big.NewInt(2000), owed.Amount)
	assert.True(t, owed.Claimed)

	// duplicate claim maps onto 409
	code, _ = httpPost(t, ts.URL+"/rewards/1/accounts/"+acc1.String()+"/claims", nil)
	assert.Equal(t, http.StatusConflict, code)

	// unfinished round maps onto 400
	code, _ = httpPost(t, ts.URL+"/rewards/2/accounts/"+acc1.String()+"/claims", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBreakdownEndpoint(t *testing.T) {
	ts := newTestServer(t)
	advanceRound(t, ts)

	code, _ := httpPost(t, ts.URL+"/pools/"+pool1.String()+"/rounds/1/votes", map[string]any{
		"distrust": 20, "total": 100,
	})
	assert.Equal(t, http.StatusNoContent, code)

	code, body := httpGet(t, ts.URL+"/pools/"+pool1.String()+"/rounds/1")
	assert.Equal(t, http.StatusOK, code)
	var breakdown node.RewardBreakdown
	require.Nil(t, json.Unmarshal(body, &breakdown))
	assert.Equal(t, big.NewInt(6000), breakdown.TheoryReward)
	assert.Equal(t, uint64(2000), breakdown.PenaltyRatioBps)
	assert.Equal(t, big.NewInt(4800), breakdown.ActualReward)
	assert.Equal(t, big.NewInt(480), breakdown.ServiceFee)
	assert.Equal(t, big.NewInt(4320), breakdown.MinerPoolReward)
	assert.Equal(t, big.NewInt(1200), breakdown.BurnAmount)
}

func TestServiceFeeEndpoint(t *testing.T) {
	ts := newTestServer(t)
	advanceRound(t, ts)

	// non-owner caller is rejected
	code, _ := httpPost(t, ts.URL+"/pools/"+pool1.String()+"/rounds/1/servicefee", map[string]any{
		"caller": acc1.String(),
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, body := httpPost(t, ts.URL+"/pools/"+pool1.String()+"/rounds/1/servicefee", map[string]any{
		"caller": owner1.String(),
	})
	assert.Equal(t, http.StatusOK, code)
	var resp struct {
		Amount *big.Int `json:"amount"`
	}
	require.Nil(t, json.Unmarshal(body, &resp))
	assert.Equal(t, big.NewInt(600), resp.Amount)
}

func TestMinerEndpoints(t *testing.T) {
	ts := newTestServer(t)
	advanceRound(t, ts)

	code, body := httpGet(t, ts.URL+"/pools/miners/"+acc1.String()+"/rounds/1")
	assert.Equal(t, http.StatusOK, code)
	var owed struct {
		Amount *big.Int `json:"amount"`
	}
	require.Nil(t, json.Unmarshal(body, &owed))
	assert.Equal(t, big.NewInt(1800), owed.Amount)

	code, _ = httpPost(t, ts.URL+"/pools/miners/"+acc1.String()+"/rounds/1/claims", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = httpPost(t, ts.URL+"/pools/miners/"+acc1.String()+"/rounds/1/claims", nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestMembershipEndpoint(t *testing.T) {
	ts := newTestServer(t)

	code, body := httpGet(t, ts.URL+"/pools/members/"+acc1.String()+"/rounds/1")
	assert.Equal(t, http.StatusOK, code)
	var resp struct {
		Pool *string `json:"pool"`
	}
	require.Nil(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.Pool)
	assert.Equal(t, pool1.String(), *resp.Pool)

	// unknown account resolves to no pool
	code, body = httpGet(t, ts.URL+"/pools/members/0x00000000000000000000000000000000000000ff/rounds/1")
	assert.Equal(t, http.StatusOK, code)
	require.Nil(t, json.Unmarshal(body, &resp))
	assert.Nil(t, resp.Pool)
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)

	code, _ := httpGet(t, ts.URL+"/rewards/notanumber/accounts/"+acc1.String())
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = httpGet(t, ts.URL+"/node/balances/nothex")
	assert.Equal(t, http.StatusBadRequest, code)
}
