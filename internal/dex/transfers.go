package dex

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrSwapLegsNotFound is returned when a receipt lacks the transfers of a swap.
var ErrSwapLegsNotFound = errors.New("swap transfers not found in receipt")

// Transfer is a decoded ERC20 Transfer log.
type Transfer struct {
	Token    common.Address
	From     common.Address
	To       common.Address
	Amount   *big.Int
	LogIndex uint
}

// SwapLegs are the token movements of one SwapERC20 settlement.
type SwapLegs struct {
	SignerWallet common.Address
	SignerToken  common.Address
	SignerAmount *big.Int
	SenderWallet common.Address
	SenderToken  common.Address
	SenderAmount *big.Int
	FeeReceiver  common.Address
	FeeAmount    *big.Int
}

// ParseTransfers decodes every ERC20 Transfer in the receipt. ERC721 transfers
// share the topic but index the token id, and are skipped.
func ParseTransfers(receipt *types.Receipt) ([]Transfer, error) {
	if receipt == nil {
		return nil, fmt.Errorf("receipt is nil")
	}
	erc20, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	event := erc20.Events["Transfer"]

	transfers := make([]Transfer, 0, len(receipt.Logs))
	for _, log := range receipt.Logs {
		if log == nil || len(log.Topics) != 3 || log.Topics[0] != event.ID {
			continue
		}
		values, err := event.Inputs.NonIndexed().Unpack(log.Data)
		if err != nil || len(values) != 1 {
			continue
		}
		amount, err := asBigInt(values[0])
		if err != nil {
			continue
		}
		transfers = append(transfers, Transfer{
			Token:    log.Address,
			From:     common.BytesToAddress(log.Topics[1].Bytes()),
			To:       common.BytesToAddress(log.Topics[2].Bytes()),
			Amount:   amount,
			LogIndex: log.Index,
		})
	}
	return transfers, nil
}

// ResolveSwapLegs reconstructs a settlement from receipt transfers. The signer
// sends the largest amount to the counterparty and may pay a protocol fee in
// the same token; the counterparty pays the signer in the other token.
func ResolveSwapLegs(receipt *types.Receipt, signerWallet common.Address) (SwapLegs, error) {
	transfers, err := ParseTransfers(receipt)
	if err != nil {
		return SwapLegs{}, err
	}

	legs := SwapLegs{SignerWallet: signerWallet}

	var signerLeg, senderLeg *Transfer
	for i := range transfers {
		t := &transfers[i]
		switch {
		case t.From == signerWallet:
			if signerLeg == nil || t.Amount.Cmp(signerLeg.Amount) > 0 {
				signerLeg = t
			}
		case t.To == signerWallet && senderLeg == nil:
			senderLeg = t
		}
	}
	if signerLeg == nil || senderLeg == nil {
		return SwapLegs{}, ErrSwapLegsNotFound
	}

	legs.SignerToken = signerLeg.Token
	legs.SignerAmount = signerLeg.Amount
	legs.SenderWallet = signerLeg.To
	legs.SenderToken = senderLeg.Token
	legs.SenderAmount = senderLeg.Amount

	for i := range transfers {
		t := &transfers[i]
		if t == signerLeg || t.From != signerWallet || t.Token != signerLeg.Token {
			continue
		}
		legs.FeeReceiver = t.To
		legs.FeeAmount = t.Amount
		break
	}
	return legs, nil
}
