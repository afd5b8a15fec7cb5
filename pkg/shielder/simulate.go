package shielder

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
)

var (
	// errorStringSelector is the 4-byte selector of Error(string), the
	// canonical require() revert encoding.
	errorStringSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	// panicSelector is the 4-byte selector of Panic(uint256).
	panicSelector = crypto.Keccak256([]byte("Panic(uint256)"))[:4]
	// callFailedSelector is the 4-byte selector of the relay adapt's
	// CallFailed(uint256,bytes) custom error, which wraps the revert data of
	// the failing inner call of a multicall.
	callFailedSelector = crypto.Keccak256([]byte("CallFailed(uint256,bytes)"))[:4]

	stringType, _  = abi.NewType("string", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	bytesType, _   = abi.NewType("bytes", "", nil)
)

// ContractCaller is the read-only RPC surface Simulate needs. It is satisfied
// by *ethclient.Client.
type ContractCaller interface {
	CallContract(
		ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int,
	) ([]byte, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
}

// Simulation is the outcome of a successful dry run.
type Simulation struct {
	GasEstimate uint64
	Calldata    []byte
}

// Service simulates shield calls against the pool contract before they are
// signed. A failed simulation never costs gas.
type Service interface {
	// Simulate dry-runs the shield call from the given sender. It returns
	// a *CallRevertError when the node predicts a revert.
	Simulate(
		ctx context.Context, from common.Address, requests []*ShieldRequest,
		value *big.Int,
	) (*Simulation, error)
}

// ServiceOpts is the struct given to the NewService method.
type ServiceOpts struct {
	Client          ContractCaller
	ContractAddress common.Address
}

func (o ServiceOpts) validate() error {
	if o.Client == nil {
		return ErrNullClient
	}
	if o.ContractAddress == (common.Address{}) {
		return ErrNullContractAddress
	}
	return nil
}

type shieldService struct {
	client          ContractCaller
	contractAddress common.Address
}

// NewService returns a new Service from the given opts.
func NewService(opts ServiceOpts) (Service, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &shieldService{
		client:          opts.Client,
		contractAddress: opts.ContractAddress,
	}, nil
}

func (s *shieldService) Simulate(
	ctx context.Context, from common.Address, requests []*ShieldRequest,
	value *big.Int,
) (*Simulation, error) {
	calldata, err := PackShieldCall(requests)
	if err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{
		From:  from,
		To:    &s.contractAddress,
		Value: value,
		Data:  calldata,
	}

	if _, err := s.client.CallContract(ctx, msg, nil); err != nil {
		revert := revertError(err)
		log.WithField("reason", revert.Reason).Debug(
			"shield simulation predicted a revert",
		)
		return nil, revert
	}

	gas, err := s.client.EstimateGas(ctx, msg)
	if err != nil {
		return nil, revertError(err)
	}

	return &Simulation{GasEstimate: gas, Calldata: calldata}, nil
}

// revertError turns a node-side call failure into a CallRevertError carrying
// the best reason derivable from the attached revert data.
func revertError(err error) *CallRevertError {
	data, ok := revertData(err)
	if !ok {
		return &CallRevertError{Reason: err.Error()}
	}
	return &CallRevertError{Reason: decodeRevertReason(data, true), Raw: data}
}

// revertData extracts the raw revert bytes the RPC node attached to the
// error, when it attached any.
func revertData(err error) ([]byte, bool) {
	type dataError interface {
		ErrorData() interface{}
	}

	var de dataError
	if !errors.As(err, &de) {
		return nil, false
	}

	switch v := de.ErrorData().(type) {
	case string:
		data, err := hexutil.Decode(v)
		if err != nil {
			return nil, false
		}
		return data, true
	case []byte:
		return v, true
	case hexutil.Bytes:
		return v, true
	}
	return nil, false
}

// decodeRevertReason renders revert data human readable. It understands the
// canonical Error(string) and Panic(uint256) encodings and unwraps a single
// level of the relay CallFailed(uint256,bytes) custom error; anything else is
// reported as raw hex.
func decodeRevertReason(data []byte, unwrapRelay bool) string {
	if len(data) < 4 {
		return fmt.Sprintf("0x%s", hex.EncodeToString(data))
	}
	selector, payload := data[:4], data[4:]

	switch {
	case bytes.Equal(selector, errorStringSelector):
		values, err := abi.Arguments{{Type: stringType}}.Unpack(payload)
		if err == nil && len(values) == 1 {
			if reason, ok := values[0].(string); ok {
				return reason
			}
		}

	case bytes.Equal(selector, panicSelector):
		values, err := abi.Arguments{{Type: uint256Type}}.Unpack(payload)
		if err == nil && len(values) == 1 {
			if code, ok := values[0].(*big.Int); ok {
				return fmt.Sprintf("panic 0x%02x", code)
			}
		}

	case unwrapRelay && bytes.Equal(selector, callFailedSelector):
		values, err := abi.Arguments{
			{Type: uint256Type}, {Type: bytesType},
		}.Unpack(payload)
		if err == nil && len(values) == 2 {
			index, okIndex := values[0].(*big.Int)
			inner, okInner := values[1].([]byte)
			if okIndex && okInner {
				return fmt.Sprintf(
					"call %d failed: %s",
					index, decodeRevertReason(inner, false),
				)
			}
		}
	}
	return fmt.Sprintf("0x%s", hex.EncodeToString(data))
}
