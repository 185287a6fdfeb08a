// Package chain mirrors debts and payments to the CreditosChain contract on
// an EVM network. The contract is a write-only audit copy; the relational
// store stays the source of truth.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"

	"creditledger/internal/config"
	"creditledger/internal/model"
	"creditledger/pkg/money"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const contractABI = `[
  {"inputs":[
    {"internalType":"uint256","name":"deudaId","type":"uint256"},
    {"internalType":"uint256","name":"clienteId","type":"uint256"},
    {"internalType":"uint256","name":"montoCents","type":"uint256"},
    {"internalType":"uint256","name":"fechaLimite","type":"uint256"}],
   "name":"registrarDeuda","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[
    {"internalType":"uint256","name":"deudaId","type":"uint256"},
    {"internalType":"uint256","name":"pagoId","type":"uint256"},
    {"internalType":"uint256","name":"montoCents","type":"uint256"}],
   "name":"registrarPago","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[
    {"internalType":"uint256","name":"deudaId","type":"uint256"}],
   "name":"obtenerMontoDeuda",
   "outputs":[{"internalType":"uint256","name":"montoCents","type":"uint256"}],
   "stateMutability":"view","type":"function"}
]`

const (
	methodRegisterDebt    = "registrarDeuda"
	methodRegisterPayment = "registrarPago"
	methodDebtAmount      = "obtenerMontoDeuda"
)

var (
	ErrMirrorDisabled  = errors.New("ledger mirror is disabled")
	ErrNegativeAmount  = errors.New("negative amounts cannot be mirrored")
	ErrInvalidContract = errors.New("invalid contract address")
)

// Client submits ledger records through a keyed transactor.
type Client struct {
	eth      *ethclient.Client
	contract *bind.BoundContract
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	gasLimit uint64
}

func parseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(contractABI))
}

// Dial connects to the RPC endpoint described by cfg.
func Dial(ctx context.Context, cfg config.MirrorConfig) (*Client, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse mirror private key: %w", err)
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, ErrInvalidContract
	}
	parsed, err := parseABI()
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	log.Printf("[chain] mirror ready: account=%s, contract=%s, chainID=%s",
		crypto.PubkeyToAddress(key.PublicKey).Hex(), address.Hex(), chainID)

	return &Client{
		eth:      eth,
		contract: bind.NewBoundContract(address, parsed, eth, eth, eth),
		key:      key,
		chainID:  chainID,
		gasLimit: cfg.GasLimit,
	}, nil
}

func (c *Client) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	opts.GasLimit = c.gasLimit
	return opts, nil
}

// SubmitDebt records a debt and returns the transaction hash.
func (c *Client) SubmitDebt(ctx context.Context, debt *model.Debt) (string, error) {
	args, err := debtArgs(debt)
	if err != nil {
		return "", err
	}
	return c.transact(ctx, methodRegisterDebt, args...)
}

// SubmitPayment records a payment against its debt.
func (c *Client) SubmitPayment(ctx context.Context, debt *model.Debt, payment *model.Payment) (string, error) {
	args, err := paymentArgs(debt, payment)
	if err != nil {
		return "", err
	}
	return c.transact(ctx, methodRegisterPayment, args...)
}

// QueryDebtAmount reads the principal the contract holds for debtID.
func (c *Client) QueryDebtAmount(ctx context.Context, debtID int64) (money.Cents, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodDebtAmount, big.NewInt(debtID))
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", methodDebtAmount, err)
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("call %s: empty result", methodDebtAmount)
	}
	amount, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("call %s: unexpected result %T", methodDebtAmount, out[0])
	}
	if !amount.IsInt64() {
		return 0, fmt.Errorf("call %s: amount %s out of range", methodDebtAmount, amount)
	}
	return money.Cents(amount.Int64()), nil
}

func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) transact(ctx context.Context, method string, args ...interface{}) (string, error) {
	opts, err := c.transactor(ctx)
	if err != nil {
		return "", fmt.Errorf("build transactor: %w", err)
	}
	tx, err := c.contract.Transact(opts, method, args...)
	if err != nil {
		return "", fmt.Errorf("send %s: %w", method, err)
	}
	return tx.Hash().Hex(), nil
}

func debtArgs(debt *model.Debt) ([]interface{}, error) {
	if debt.Principal < 0 {
		return nil, ErrNegativeAmount
	}
	return []interface{}{
		big.NewInt(debt.ID),
		big.NewInt(debt.ClientID),
		big.NewInt(int64(debt.Principal)),
		big.NewInt(debt.DueDate.UTC().Unix()),
	}, nil
}

func paymentArgs(debt *model.Debt, payment *model.Payment) ([]interface{}, error) {
	if payment.Amount < 0 {
		return nil, ErrNegativeAmount
	}
	return []interface{}{
		big.NewInt(debt.ID),
		big.NewInt(payment.ID),
		big.NewInt(int64(payment.Amount)),
	}, nil
}

// Disabled stands in for the mirror when it is switched off. Every call
// fails, so each mutation is still audited as a failed attempt.
type Disabled struct{}

func (Disabled) SubmitDebt(context.Context, *model.Debt) (string, error) {
	return "", ErrMirrorDisabled
}

func (Disabled) SubmitPayment(context.Context, *model.Debt, *model.Payment) (string, error) {
	return "", ErrMirrorDisabled
}

func (Disabled) QueryDebtAmount(context.Context, int64) (money.Cents, error) {
	return 0, ErrMirrorDisabled
}
