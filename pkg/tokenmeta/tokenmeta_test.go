package tokenmeta

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type fakeTokenCaller struct {
	symbol   string
	decimals uint8
	fail     bool
	calls    int
}

func (f *fakeTokenCaller) CallContract(
	_ context.Context, call ethereum.CallMsg, _ *big.Int,
) ([]byte, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("execution reverted")
	}

	switch {
	case len(call.Data) >= 4 && string(call.Data[:4]) == string(erc20ABI.Methods["symbol"].ID):
		return erc20ABI.Methods["symbol"].Outputs.Pack(f.symbol)
	case len(call.Data) >= 4 && string(call.Data[:4]) == string(erc20ABI.Methods["decimals"].ID):
		return erc20ABI.Methods["decimals"].Outputs.Pack(f.decimals)
	}
	return nil, errors.New("unexpected call")
}

func TestMetadata(t *testing.T) {
	caller := &fakeTokenCaller{symbol: "DAI", decimals: 18}
	svc, err := NewService(ServiceOpts{Client: caller})
	require.NoError(t, err)

	token := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	meta := svc.Metadata(context.Background(), token)
	require.Equal(t, "DAI", meta.Symbol)
	require.Equal(t, uint8(18), meta.Decimals)

	// second lookup is served from cache
	calls := caller.calls
	meta = svc.Metadata(context.Background(), token)
	require.Equal(t, "DAI", meta.Symbol)
	require.Equal(t, calls, caller.calls)
}

func TestMetadataUnresolvableToken(t *testing.T) {
	caller := &fakeTokenCaller{fail: true}
	svc, err := NewService(ServiceOpts{Client: caller})
	require.NoError(t, err)

	token := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	meta := svc.Metadata(context.Background(), token)
	require.Equal(t, UnknownSymbol, meta.Symbol)
	require.Equal(t, DefaultDecimals, meta.Decimals)

	// the sentinel is cached as well
	calls := caller.calls
	svc.Metadata(context.Background(), token)
	require.Equal(t, calls, caller.calls)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		meta     Metadata
		amount   *big.Int
		expected string
	}{
		{"usdc_like", Metadata{Symbol: "USDC", Decimals: 6}, big.NewInt(1500000), "1.5"},
		{"eighteen_decimals", Metadata{Decimals: 18}, big.NewInt(1), "0.000000000000000001"},
		{"whole", Metadata{Decimals: 18}, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), "1"},
		{"zero_decimals", Metadata{Decimals: 0}, big.NewInt(42), "42"},
		{"nil_amount", Metadata{Decimals: 6}, nil, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.meta.Format(tt.amount))
		})
	}
}

func TestFailingNewService(t *testing.T) {
	svc, err := NewService(ServiceOpts{})
	require.Nil(t, svc)
	require.EqualError(t, err, ErrNullClient.Error())
}
