package campaign

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/pda"
	"solana-mint-campaign/internal/solana"
)

// SystemProgramID is the native system program address.
const SystemProgramID = "11111111111111111111111111111111"

// Instruction opcodes understood by the campaign program. Each submitted
// instruction starts with a single opcode byte followed by a little-endian
// payload.
const (
	opInitCampaign     byte = 0
	opRegisterGroup    byte = 1
	opSetBotTax        byte = 2
	opInitFreezeEscrow byte = 3
	opInsertItems      byte = 4
	opMint             byte = 5
	opThaw             byte = 6
	opUnlockFunds      byte = 7
)

// Guard tags used in the register-group payload. Tag order within a payload
// is the evaluation order submitted for the group.
const (
	tagTimeWindow byte = 0
	tagPayment    byte = 1
	tagAllowList  byte = 2
	tagMintCap    byte = 3
	tagFreeze     byte = 4
	tagBotTax     byte = 5
)

// initCampaignInstruction creates the campaign account with a declared item
// capacity. The campaign account itself co-signs creation.
func initCampaignInstruction(programID, campaignAddress, authority string, itemsAvailable int) solana.Instruction {
	var buf bytes.Buffer
	buf.WriteByte(opInitCampaign)
	writeU32(&buf, uint32(itemsAvailable))

	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			{PubKey: campaignAddress, IsSigner: true, IsWritable: true},
			{PubKey: authority, IsSigner: true, IsWritable: true},
			{PubKey: SystemProgramID},
		},
		Data: buf.Bytes(),
	}
}

// registerGroupInstruction encodes one labeled guard group. Guards are
// serialized in the order given, which the program preserves as the
// evaluation order.
func registerGroupInstruction(programID, campaignAddress, authority string, label string, guards []domain.Guard) (solana.Instruction, error) {
	var buf bytes.Buffer
	buf.WriteByte(opRegisterGroup)
	writeString(&buf, label)
	buf.WriteByte(byte(len(guards)))

	for _, g := range guards {
		if err := encodeGuard(&buf, g); err != nil {
			return solana.Instruction{}, fmt.Errorf("group %q: %w", label, err)
		}
	}

	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			{PubKey: campaignAddress, IsWritable: true},
			{PubKey: authority, IsSigner: true},
		},
		Data: buf.Bytes(),
	}, nil
}

// setBotTaxInstruction arms the campaign-wide bot tax. It must be the last
// instruction of the creation transaction so the tax intercepts every guard
// failure registered before it.
func setBotTaxInstruction(programID, campaignAddress, authority string, g domain.BotTaxGuard) solana.Instruction {
	var buf bytes.Buffer
	buf.WriteByte(opSetBotTax)
	writeU64(&buf, uint64(g.Lamports))
	writeBool(&buf, g.LastInstruction)

	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			{PubKey: campaignAddress, IsWritable: true},
			{PubKey: authority, IsSigner: true},
		},
		Data: buf.Bytes(),
	}
}

// initFreezeEscrowInstruction opens the escrow account that holds frozen
// mint payments for one group.
func initFreezeEscrowInstruction(programID, campaignAddress, authority, label string, periodSeconds int64) (solana.Instruction, error) {
	escrow, bump, err := pda.FreezeEscrowAddress(campaignAddress, label, programID)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("derive freeze escrow: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteByte(opInitFreezeEscrow)
	writeString(&buf, label)
	writeI64(&buf, periodSeconds)
	buf.WriteByte(bump)

	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			{PubKey: campaignAddress, IsWritable: true},
			{PubKey: authority, IsSigner: true, IsWritable: true},
			{PubKey: escrow, IsWritable: true},
			{PubKey: SystemProgramID},
		},
		Data: buf.Bytes(),
	}, nil
}

// InsertItemsInstruction loads a contiguous run of items at an explicit
// position. Positions are absolute, so runs may land in any order; the
// program rejects a run whose positions are already filled, which makes a
// replayed batch detectable instead of a duplicate.
func InsertItemsInstruction(programID, campaignAddress, authority string, startIndex int, items []domain.Item) solana.Instruction {
	var buf bytes.Buffer
	buf.WriteByte(opInsertItems)
	writeU32(&buf, uint32(startIndex))
	buf.WriteByte(byte(len(items)))
	for _, it := range items {
		writeString(&buf, it.Name)
		writeString(&buf, it.URI)
		writeString(&buf, it.Rarity)
	}

	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			{PubKey: campaignAddress, IsWritable: true},
			{PubKey: authority, IsSigner: true},
		},
		Data: buf.Bytes(),
	}
}

// MintInstruction mints the next item under the named group for buyer. The
// asset account co-signs its own creation.
func MintInstruction(programID, campaignAddress, buyer, assetAddress, label string) (solana.Instruction, error) {
	var buf bytes.Buffer
	buf.WriteByte(opMint)
	writeString(&buf, label)

	counter, _, err := pda.MintCounterAddress(campaignAddress, label, domain.PublicGroupMintLimitID, buyer, programID)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("derive mint counter: %w", err)
	}
	escrow, _, err := pda.FreezeEscrowAddress(campaignAddress, label, programID)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("derive freeze escrow: %w", err)
	}

	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			{PubKey: campaignAddress, IsWritable: true},
			{PubKey: buyer, IsSigner: true, IsWritable: true},
			{PubKey: assetAddress, IsSigner: true, IsWritable: true},
			{PubKey: counter, IsWritable: true},
			{PubKey: escrow, IsWritable: true},
			{PubKey: SystemProgramID},
		},
		Data: buf.Bytes(),
	}, nil
}

// ThawInstruction releases the freeze on one minted asset. Permissionless:
// any signer may pay the fee once the freeze period elapsed.
func ThawInstruction(programID, campaignAddress, payer, assetAddress, label string) (solana.Instruction, error) {
	escrow, _, err := pda.FreezeEscrowAddress(campaignAddress, label, programID)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("derive freeze escrow: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteByte(opThaw)
	writeString(&buf, label)

	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			{PubKey: campaignAddress},
			{PubKey: payer, IsSigner: true, IsWritable: true},
			{PubKey: assetAddress, IsWritable: true},
			{PubKey: escrow, IsWritable: true},
		},
		Data: buf.Bytes(),
	}, nil
}

// UnlockFundsInstruction drains a group's freeze escrow to the authority.
func UnlockFundsInstruction(programID, campaignAddress, authority, label string) (solana.Instruction, error) {
	escrow, _, err := pda.FreezeEscrowAddress(campaignAddress, label, programID)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("derive freeze escrow: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteByte(opUnlockFunds)
	writeString(&buf, label)

	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			{PubKey: campaignAddress},
			{PubKey: authority, IsSigner: true, IsWritable: true},
			{PubKey: escrow, IsWritable: true},
		},
		Data: buf.Bytes(),
	}, nil
}

// encodeGuard serializes one guard as tag byte plus payload.
func encodeGuard(buf *bytes.Buffer, g domain.Guard) error {
	switch v := g.(type) {
	case domain.TimeWindowGuard:
		buf.WriteByte(tagTimeWindow)
		writeI64(buf, v.StartMs)
		writeI64(buf, v.EndMs)
	case domain.PaymentGuard:
		buf.WriteByte(tagPayment)
		writeU64(buf, uint64(v.Lamports))
		if err := writePubkey(buf, v.Destination); err != nil {
			return err
		}
	case domain.AllowListGuard:
		if len(v.MerkleRoot) != 32 {
			return fmt.Errorf("allow-list root must be 32 bytes, got %d", len(v.MerkleRoot))
		}
		buf.WriteByte(tagAllowList)
		buf.Write(v.MerkleRoot)
	case domain.MintCapGuard:
		buf.WriteByte(tagMintCap)
		buf.WriteByte(byte(v.ID))
		writeU32(buf, uint32(v.Limit))
	case domain.FreezeGuard:
		buf.WriteByte(tagFreeze)
		writeU64(buf, uint64(v.Lamports))
		if err := writePubkey(buf, v.Destination); err != nil {
			return err
		}
		writeI64(buf, v.PeriodSeconds)
	case domain.BotTaxGuard:
		buf.WriteByte(tagBotTax)
		writeU64(buf, uint64(v.Lamports))
		writeBool(buf, v.LastInstruction)
	default:
		return fmt.Errorf("unknown guard kind %s", g.Kind())
	}
	return nil
}

func writeU32(buf *bytes.Buffer, n uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], n)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, n uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	buf.Write(b[:])
}

func writeI64(buf *bytes.Buffer, n int64) {
	writeU64(buf, uint64(n))
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

// writeString emits a u16 length prefix followed by raw bytes.
func writeString(buf *bytes.Buffer, s string) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(len(s)))
	buf.Write(b[:])
	buf.WriteString(s)
}

// writePubkey emits a raw 32-byte key.
func writePubkey(buf *bytes.Buffer, address string) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("decode address %q: %w", address, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("address %q is %d bytes, want 32", address, len(raw))
	}
	buf.Write(raw)
	return nil
}
