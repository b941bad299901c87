package discovery

import (
	"context"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/registry"
)

func addr(b byte) common.Address {
	return common.BytesToAddress([]byte{b})
}

func txHash(b byte) common.Hash {
	return common.BytesToHash([]byte{b})
}

// stubTxSource serves transactions by hash from a fixed map.
type stubTxSource struct {
	txs map[common.Hash]*domain.Transaction
}

func (s *stubTxSource) Transaction(_ context.Context, hash common.Hash) (*domain.Transaction, error) {
	tx, ok := s.txs[hash]
	if !ok {
		return nil, fmt.Errorf("no transaction %s", hash.Hex())
	}
	return tx, nil
}

func addLiquidityTx(from common.Address) *domain.Transaction {
	return &domain.Transaction{
		From:  from,
		Input: common.FromHex(registry.SelectorAddLiquidity + "00112233"),
	}
}

func TestParticipantSet_DedupsAndOrders(t *testing.T) {
	set := NewParticipantSet()

	assert.True(t, set.Add(addr(2)))
	assert.True(t, set.Add(addr(1)))
	assert.False(t, set.Add(addr(2)))
	assert.True(t, set.Add(addr(3)))

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []common.Address{addr(2), addr(1), addr(3)}, set.Addresses())
	assert.True(t, set.Contains(addr(1)))
	assert.False(t, set.Contains(addr(9)))
}

func TestParticipantSet_RejectsZeroAddress(t *testing.T) {
	set := NewParticipantSet()
	assert.False(t, set.Add(common.Address{}))
	assert.Equal(t, 0, set.Len())
}

func TestFromMints_ResolvesDepositorFromTransaction(t *testing.T) {
	src := &stubTxSource{txs: map[common.Hash]*domain.Transaction{
		txHash(1): addLiquidityTx(addr(0x10)),
		txHash(2): addLiquidityTx(addr(0x11)),
	}}
	d := NewDiscoverer(src, registry.Mainnet())
	set := NewParticipantSet()

	// The logged sender is the router; it must not end up in the set.
	router := addr(0xEE)
	mints := []domain.MintEvent{
		{Sender: router, TxHash: txHash(1)},
		{Sender: router, TxHash: txHash(2)},
	}

	err := d.FromMints(context.Background(), mints, set)
	require.NoError(t, err)

	assert.Equal(t, []common.Address{addr(0x10), addr(0x11)}, set.Addresses())
	assert.False(t, set.Contains(router))
}

func TestFromMints_UnknownSelectorFatal(t *testing.T) {
	src := &stubTxSource{txs: map[common.Hash]*domain.Transaction{
		txHash(1): {From: addr(0x10), Input: common.FromHex("0xdeadbeef")},
	}}
	d := NewDiscoverer(src, registry.Mainnet())
	set := NewParticipantSet()

	err := d.FromMints(context.Background(), []domain.MintEvent{{TxHash: txHash(1)}}, set)

	var unrecognized *UnrecognizedOriginError
	require.ErrorAs(t, err, &unrecognized)
	assert.Equal(t, txHash(1), unrecognized.TxHash)
	assert.Equal(t, common.FromHex("0xdeadbeef"), unrecognized.Selector)
	assert.Equal(t, 0, set.Len())
}

func TestFromMints_TransactionLookupFailure(t *testing.T) {
	d := NewDiscoverer(&stubTxSource{}, registry.Mainnet())
	set := NewParticipantSet()

	err := d.FromMints(context.Background(), []domain.MintEvent{{TxHash: txHash(7)}}, set)
	assert.Error(t, err)
}

func TestFromDepositors_UsesLoggedSender(t *testing.T) {
	d := NewDiscoverer(&stubTxSource{}, registry.Mainnet())
	set := NewParticipantSet()

	d.FromDepositors([]domain.MintEvent{
		{Sender: addr(0x20)},
		{Sender: addr(0x21)},
		{Sender: addr(0x20)},
	}, set)

	assert.Equal(t, []common.Address{addr(0x20), addr(0x21)}, set.Addresses())
}

func TestFromTransfers_AddsRecipients(t *testing.T) {
	d := NewDiscoverer(&stubTxSource{}, registry.Mainnet())
	set := NewParticipantSet()

	d.FromTransfers([]domain.TransferEvent{
		{From: addr(0x30), To: addr(0x31)},
		{From: common.Address{}, To: addr(0x32)}, // mint-style transfer
		{From: addr(0x31), To: common.Address{}}, // burn, recipient skipped
	}, set)

	assert.Equal(t, []common.Address{addr(0x31), addr(0x32)}, set.Addresses())
}

func TestFromStakes_AddsUsers(t *testing.T) {
	d := NewDiscoverer(&stubTxSource{}, registry.Mainnet())
	set := NewParticipantSet()

	d.FromStakes([]domain.StakeEvent{
		{User: addr(0x40)},
		{User: addr(0x41)},
		{User: addr(0x40)},
	}, set)

	assert.Equal(t, []common.Address{addr(0x40), addr(0x41)}, set.Addresses())
}
